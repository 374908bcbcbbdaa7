// Package engine implements the shoal session and subscription engine.
//
// The engine sits between the transport and the database. It owns the
// session registry and the per-table subscription sets, and it turns
// each inbound client message into the full set of outbound envelopes
// that message produces.
//
// ARCHITECTURE:
//
// Serialized Dispatch:
// Process holds the engine mutex for the whole of one message, so the
// write, the snapshot capture, and the fanout all observe one
// consistent state. This ensures:
//   - A snapshot reflects exactly the documents at subscribe time
//   - A change broadcast reaches exactly the sessions subscribed when
//     the write landed
//   - Every subscriber observes changes in the same revision order
//
// Message Processing Flow:
//  1. Transport decodes a frame (or hands the raw frame to ProcessFrame)
//  2. Process checks the sender is a registered session
//  3. The handler for the message type runs the database operation
//  4. Replies for the sender come first, then change broadcasts in
//     ascending session-id order
//
// Failures never escape as Go errors. Every failure is returned as a
// single error envelope addressed to the sender, and a failed action
// produces no broadcast.
package engine
