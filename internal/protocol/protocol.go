// Package protocol defines the wire messages exchanged between clients
// and the server. Frames are JSON objects discriminated by a "type"
// field, one frame per line on the wire.
package protocol

// Wire type discriminants for client messages.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeInsert      = "insert"
	TypeDelete      = "delete"
	TypeGet         = "get"
	TypeList        = "list"
	TypePing        = "ping"
)

// Wire type discriminants for server messages.
const (
	TypeAck      = "ack"
	TypeResult   = "result"
	TypeSnapshot = "snapshot"
	TypeChange   = "change"
	TypePong     = "pong"
	TypeError    = "error"
)

// ClientMessage is a sealed interface over messages clients send.
// Only the types in this package implement it.
type ClientMessage interface {
	clientMessage() // Sealed - only these types implement it
}

// ServerMessage is a sealed interface over messages the server sends.
// Only the types in this package implement it.
type ServerMessage interface {
	serverMessage() // Sealed - only these types implement it
}

// Envelope pairs a server message with the session that should receive
// it. The transport resolves the session to a connection; envelopes for
// sessions that disconnected in the meantime are dropped.
type Envelope struct {
	SessionID string
	Message   ServerMessage
}
