package protocol

import (
	"encoding/json"

	"github.com/roach88/shoal/internal/document"
)

// ErrorCode categorizes wire errors.
type ErrorCode string

const (
	// CodeBadRequest covers malformed frames, unregistered sessions,
	// and operations against undeclared tables.
	CodeBadRequest ErrorCode = "BAD_REQUEST"

	// CodeNotFound indicates a missing document.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeSchemaViolation indicates a document rejected by its table's
	// declared schema.
	CodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	// CodeInternal indicates an unexpected server-side failure.
	CodeInternal ErrorCode = "INTERNAL"
)

// Ack confirms a subscription change took effect. Event names the
// acknowledged action (subscribe or unsubscribe).
type Ack struct {
	RequestID string `json:"requestId"`
	Event     string `json:"event"`
	OK        bool   `json:"ok"`
}

func (Ack) serverMessage() {}

// Result carries the outcome of a document operation. Op names the
// operation; Payload is the document for insert and get, the deleted
// id for delete, and the document list for list.
type Result struct {
	RequestID string `json:"requestId"`
	Op        string `json:"op"`
	OK        bool   `json:"ok"`
	Payload   any    `json:"payload"`
}

func (Result) serverMessage() {}

// Snapshot is the full contents of a table at subscribe time, sorted
// by document id.
type Snapshot struct {
	Table     string              `json:"table"`
	Documents []document.Document `json:"documents"`
}

func (Snapshot) serverMessage() {}

// Change announces one applied write to subscribers. Op "insert"
// carries the written document; op "delete" carries the removed id.
type Change struct {
	Table    string             `json:"table"`
	Op       string             `json:"op"`
	Document *document.Document `json:"document,omitempty"`
	ID       string             `json:"id,omitempty"`
}

func (Change) serverMessage() {}

// Pong answers a ping. SentAt echoes the ping's clock; ReceivedAt is
// the server's clock in unix milliseconds.
type Pong struct {
	RequestID  string `json:"requestId"`
	SentAt     int64  `json:"sentAt"`
	ReceivedAt int64  `json:"receivedAt"`
}

func (Pong) serverMessage() {}

// Error reports a failed request.
type Error struct {
	RequestID string            `json:"requestId"`
	OK        bool              `json:"ok"`
	Code      ErrorCode         `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

func (Error) serverMessage() {}

// NewAck builds an Ack for event. OK is always true; failures use
// Error instead.
func NewAck(requestID, event string) Ack {
	return Ack{RequestID: requestID, Event: event, OK: true}
}

// NewResult builds a successful Result for op.
func NewResult(requestID, op string, payload any) Result {
	return Result{RequestID: requestID, Op: op, OK: true, Payload: payload}
}

// NewError builds an Error. Details may be nil.
func NewError(requestID string, code ErrorCode, message string, details map[string]string) Error {
	return Error{
		RequestID: requestID,
		OK:        false,
		Code:      code,
		Message:   message,
		Details:   details,
	}
}

// MarshalJSON emits the wire form with the type discriminant first.
func (m Ack) MarshalJSON() ([]byte, error) {
	type alias Ack
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeAck, alias: alias(m)})
}

func (m Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeResult, alias: alias(m)})
}

// MarshalJSON emits the wire form. A nil document slice still encodes
// as [], never null.
func (m Snapshot) MarshalJSON() ([]byte, error) {
	if m.Documents == nil {
		m.Documents = []document.Document{}
	}
	type alias Snapshot
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeSnapshot, alias: alias(m)})
}

func (m Change) MarshalJSON() ([]byte, error) {
	type alias Change
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeChange, alias: alias(m)})
}

func (m Pong) MarshalJSON() ([]byte, error) {
	type alias Pong
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypePong, alias: alias(m)})
}

func (m Error) MarshalJSON() ([]byte, error) {
	type alias Error
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeError, alias: alias(m)})
}
