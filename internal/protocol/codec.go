package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeError reports a frame that could not be decoded into a client
// message. RequestID carries whatever id could be recovered from the
// frame, so the caller can still address its error reply.
type DecodeError struct {
	RequestID string
	Message   string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// DecodeClientMessage parses one JSON frame into a client message.
// Malformed JSON, unknown types, and missing required fields return a
// *DecodeError. Extra fields are tolerated. Numbers inside document
// fields decode as json.Number so precision survives the round trip.
func DecodeClientMessage(frame []byte) (ClientMessage, error) {
	var head struct {
		Type      string `json:"type"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, &DecodeError{Message: "malformed JSON frame"}
	}
	if head.Type == "" {
		return nil, &DecodeError{RequestID: head.RequestID, Message: "missing message type"}
	}

	switch head.Type {
	case TypeSubscribe:
		var m Subscribe
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed subscribe frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "subscribe requires a requestId"}
		}
		if m.Table == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "subscribe requires a table"}
		}
		return m, nil

	case TypeUnsubscribe:
		var m Unsubscribe
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed unsubscribe frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "unsubscribe requires a requestId"}
		}
		if m.Table == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "unsubscribe requires a table"}
		}
		return m, nil

	case TypeInsert:
		// Value decodes through a pointer so a missing value is
		// distinguishable from an empty one.
		var m struct {
			RequestID string       `json:"requestId"`
			Table     string       `json:"table"`
			Value     *InsertValue `json:"value"`
		}
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed insert frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "insert requires a requestId"}
		}
		if m.Table == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "insert requires a table"}
		}
		if m.Value == nil {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "insert requires a value"}
		}
		return Insert{RequestID: m.RequestID, Table: m.Table, Value: *m.Value}, nil

	case TypeDelete:
		var m Delete
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed delete frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "delete requires a requestId"}
		}
		if m.Table == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "delete requires a table"}
		}
		if m.ID == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "delete requires an id"}
		}
		return m, nil

	case TypeGet:
		var m Get
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed get frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "get requires a requestId"}
		}
		if m.Table == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "get requires a table"}
		}
		if m.ID == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "get requires an id"}
		}
		return m, nil

	case TypeList:
		var m List
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed list frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "list requires a requestId"}
		}
		if m.Table == "" {
			return nil, &DecodeError{RequestID: m.RequestID, Message: "list requires a table"}
		}
		return m, nil

	case TypePing:
		var m Ping
		if err := decodeBody(frame, &m); err != nil {
			return nil, &DecodeError{RequestID: head.RequestID, Message: "malformed ping frame"}
		}
		if m.RequestID == "" {
			return nil, &DecodeError{Message: "ping requires a requestId"}
		}
		return m, nil

	default:
		return nil, &DecodeError{
			RequestID: head.RequestID,
			Message:   fmt.Sprintf("unknown message type %q", head.Type),
		}
	}
}

// EncodeServerMessage renders a server message as one JSON frame,
// without the trailing newline. Framing is the transport's business.
func EncodeServerMessage(m ServerMessage) ([]byte, error) {
	return json.Marshal(m)
}

// decodeBody decodes frame into v with UseNumber so numeric document
// fields keep full precision.
func decodeBody(frame []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.UseNumber()
	return dec.Decode(v)
}
