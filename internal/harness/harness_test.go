package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usersScenario builds an in-code scenario over a single users table
// with one required name field.
func usersScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "constructed in code",
		Tables: map[string]map[string]FieldSpec{
			"users": {"name": {Type: "string", Required: true}},
		},
		Steps: steps,
	}
}

func TestRunRecordsLifecycle(t *testing.T) {
	scenario := usersScenario(
		Step{Session: "alice", Connect: true},
		Step{Session: "alice", Send: map[string]any{
			"type": "ping", "requestId": "r1", "sentAt": 1699999999000,
		}},
		Step{Session: "alice", Disconnect: true},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 4)

	assert.Equal(t, TraceEvent{Seq: 1, Session: "alice", Type: "connect"}, result.Trace[0])

	send := result.Trace[1]
	assert.Equal(t, int64(2), send.Seq)
	assert.Equal(t, "send", send.Type)
	assert.Equal(t, "ping", send.Message["type"])

	pong := result.Trace[2]
	assert.Equal(t, "deliver", pong.Type)
	assert.Equal(t, "alice", pong.Session)
	assert.Equal(t, "pong", pong.Message["type"])
	assert.Equal(t, json.Number("1699999999000"), pong.Message["sentAt"])
	assert.Equal(t, json.Number("1700000000000"), pong.Message["receivedAt"])

	assert.Equal(t, TraceEvent{Seq: 4, Session: "alice", Type: "disconnect"}, result.Trace[3])
}

func TestRunBroadcastOrdersDeliveries(t *testing.T) {
	subscribe := func(session, requestID string) Step {
		return Step{Session: session, Send: map[string]any{
			"type": "subscribe", "requestId": requestID, "table": "users",
		}}
	}

	// carol connects and subscribes first, yet deliveries fan out in
	// ascending session order, so alice's change precedes carol's.
	scenario := usersScenario(
		Step{Session: "carol", Connect: true},
		Step{Session: "alice", Connect: true},
		subscribe("carol", "r1"),
		subscribe("alice", "r2"),
		Step{Session: "carol", Send: map[string]any{
			"type": "insert", "requestId": "r3", "table": "users",
			"value": map[string]any{"fields": map[string]any{"name": "Ada"}},
		}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 12)

	tail := result.Trace[8:]
	assert.Equal(t, "send", tail[0].Type)

	assert.Equal(t, "result", tail[1].Message["type"])
	assert.Equal(t, "carol", tail[1].Session)

	assert.Equal(t, "change", tail[2].Message["type"])
	assert.Equal(t, "alice", tail[2].Session)

	assert.Equal(t, "change", tail[3].Message["type"])
	assert.Equal(t, "carol", tail[3].Session)
}

func TestRunFailedActionDeliversSingleError(t *testing.T) {
	scenario := usersScenario(
		Step{Session: "alice", Connect: true},
		Step{Session: "alice", Send: map[string]any{
			"type": "insert", "requestId": "r1", "table": "users",
			"value": map[string]any{"fields": map[string]any{}},
		}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)

	errEvent := result.Trace[2]
	assert.Equal(t, "deliver", errEvent.Type)
	assert.Equal(t, "error", errEvent.Message["type"])
	assert.Equal(t, "SCHEMA_VIOLATION", errEvent.Message["code"])
	assert.Equal(t, false, errEvent.Message["ok"])
}

func TestRunRejectsUnknownFieldType(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_type",
		Description: "schema with a made-up field type",
		Tables: map[string]map[string]FieldSpec{
			"users": {"name": {Type: "varchar"}},
		},
		Steps: []Step{{Session: "alice", Connect: true}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "varchar"`)
}

func TestRunDeterministic(t *testing.T) {
	build := func() *Scenario {
		return usersScenario(
			Step{Session: "alice", Connect: true},
			Step{Session: "alice", Send: map[string]any{
				"type": "subscribe", "requestId": "r1", "table": "users",
			}},
			Step{Session: "alice", Send: map[string]any{
				"type": "insert", "requestId": "r2", "table": "users",
				"value": map[string]any{"fields": map[string]any{"name": "Ada"}},
			}},
			Step{Session: "alice", Send: map[string]any{
				"type": "insert", "requestId": "r3", "table": "users",
				"value": map[string]any{"fields": map[string]any{"name": "Grace"}},
			}},
			Step{Session: "alice", Disconnect: true},
		)
	}

	first, err := Run(build())
	require.NoError(t, err)
	second, err := Run(build())
	require.NoError(t, err)

	firstJSON, err := first.MarshalTrace("determinism")
	require.NoError(t, err)
	secondJSON, err := second.MarshalTrace("determinism")
	require.NoError(t, err)

	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestMarshalTrace(t *testing.T) {
	result := &Result{Trace: []TraceEvent{
		{Seq: 1, Session: "alice", Type: "connect"},
		{Seq: 2, Session: "alice", Type: "send", Message: map[string]any{"type": "ping"}},
	}}

	out, err := result.MarshalTrace("tiny")
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"tiny","trace":[{"seq":1,"session":"alice","type":"connect"},{"message":{"type":"ping"},"seq":2,"session":"alice","type":"send"}]}`,
		string(out))
}
