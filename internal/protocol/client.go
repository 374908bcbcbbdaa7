package protocol

import "encoding/json"

// Subscribe asks for change notifications on a table. The server
// replies with an ack followed by a snapshot of the table.
type Subscribe struct {
	RequestID string `json:"requestId"`
	Table     string `json:"table"`
}

func (Subscribe) clientMessage() {}

// Unsubscribe stops change notifications for a table. Unsubscribing a
// table that was never subscribed still acks; subscriptions are a set.
type Unsubscribe struct {
	RequestID string `json:"requestId"`
	Table     string `json:"table"`
}

func (Unsubscribe) clientMessage() {}

// InsertValue is the document payload of an insert: an optional caller
// id plus the field set.
type InsertValue struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// Insert writes a document into a table. An absent Value.ID means the
// server assigns one; an existing id replaces that document under a
// fresh revision.
type Insert struct {
	RequestID string      `json:"requestId"`
	Table     string      `json:"table"`
	Value     InsertValue `json:"value"`
}

func (Insert) clientMessage() {}

// Delete removes the document with ID from a table.
type Delete struct {
	RequestID string `json:"requestId"`
	Table     string `json:"table"`
	ID        string `json:"id"`
}

func (Delete) clientMessage() {}

// Get reads one document by id.
type Get struct {
	RequestID string `json:"requestId"`
	Table     string `json:"table"`
	ID        string `json:"id"`
}

func (Get) clientMessage() {}

// List reads every document in a table.
type List struct {
	RequestID string `json:"requestId"`
	Table     string `json:"table"`
}

func (List) clientMessage() {}

// Ping measures liveness. SentAt is the client's clock in unix
// milliseconds, echoed back in the pong.
type Ping struct {
	RequestID string `json:"requestId"`
	SentAt    int64  `json:"sentAt"`
}

func (Ping) clientMessage() {}

// RequestIDOf extracts the request id from any client message.
func RequestIDOf(m ClientMessage) string {
	switch m := m.(type) {
	case Subscribe:
		return m.RequestID
	case Unsubscribe:
		return m.RequestID
	case Insert:
		return m.RequestID
	case Delete:
		return m.RequestID
	case Get:
		return m.RequestID
	case List:
		return m.RequestID
	case Ping:
		return m.RequestID
	}
	return ""
}

// MarshalJSON emits the wire form with the type discriminant first.
func (m Subscribe) MarshalJSON() ([]byte, error) {
	type alias Subscribe
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeSubscribe, alias: alias(m)})
}

func (m Unsubscribe) MarshalJSON() ([]byte, error) {
	type alias Unsubscribe
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeUnsubscribe, alias: alias(m)})
}

func (m Insert) MarshalJSON() ([]byte, error) {
	type alias Insert
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeInsert, alias: alias(m)})
}

func (m Delete) MarshalJSON() ([]byte, error) {
	type alias Delete
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeDelete, alias: alias(m)})
}

func (m Get) MarshalJSON() ([]byte, error) {
	type alias Get
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeGet, alias: alias(m)})
}

func (m List) MarshalJSON() ([]byte, error) {
	type alias List
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypeList, alias: alias(m)})
}

func (m Ping) MarshalJSON() ([]byte, error) {
	type alias Ping
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: TypePing, alias: alias(m)})
}
