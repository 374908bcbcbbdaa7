package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoal/internal/document"
)

func TestServerMessageJSON(t *testing.T) {
	doc := document.Document{
		ID:       "u1",
		Revision: 7,
		Fields:   map[string]any{"name": "Ada"},
	}

	tests := []struct {
		name string
		msg  ServerMessage
		want string
	}{
		{
			name: "ack",
			msg:  NewAck("r1", "subscribe"),
			want: `{"type":"ack","requestId":"r1","event":"subscribe","ok":true}`,
		},
		{
			name: "result with document payload",
			msg:  NewResult("r2", "insert", doc),
			want: `{"type":"result","requestId":"r2","op":"insert","ok":true,"payload":{"id":"u1","revision":7,"fields":{"name":"Ada"}}}`,
		},
		{
			name: "snapshot",
			msg:  Snapshot{Table: "users", Documents: []document.Document{doc}},
			want: `{"type":"snapshot","table":"users","documents":[{"id":"u1","revision":7,"fields":{"name":"Ada"}}]}`,
		},
		{
			name: "snapshot of empty table",
			msg:  Snapshot{Table: "users"},
			want: `{"type":"snapshot","table":"users","documents":[]}`,
		},
		{
			name: "change insert carries the document",
			msg:  Change{Table: "users", Op: "insert", Document: &doc},
			want: `{"type":"change","table":"users","op":"insert","document":{"id":"u1","revision":7,"fields":{"name":"Ada"}}}`,
		},
		{
			name: "change delete carries only the id",
			msg:  Change{Table: "users", Op: "delete", ID: "u1"},
			want: `{"type":"change","table":"users","op":"delete","id":"u1"}`,
		},
		{
			name: "pong",
			msg:  Pong{RequestID: "r3", SentAt: 1700000000000, ReceivedAt: 1700000000005},
			want: `{"type":"pong","requestId":"r3","sentAt":1700000000000,"receivedAt":1700000000005}`,
		},
		{
			name: "error without details",
			msg:  NewError("r4", CodeBadRequest, "table is required", nil),
			want: `{"type":"error","requestId":"r4","ok":false,"code":"BAD_REQUEST","message":"table is required"}`,
		},
		{
			name: "error with details",
			msg:  NewError("r5", CodeSchemaViolation, "required field is missing", map[string]string{"table": "users", "field": "name"}),
			want: `{"type":"error","requestId":"r5","ok":false,"code":"SCHEMA_VIOLATION","message":"required field is missing","details":{"table":"users","field":"name"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestConstructorsSetOKFlags(t *testing.T) {
	assert.True(t, NewAck("r1", "subscribe").OK)
	assert.True(t, NewResult("r2", "get", nil).OK)
	assert.False(t, NewError("r3", CodeInternal, "internal error", nil).OK)
}
