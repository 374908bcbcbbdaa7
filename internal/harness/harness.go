// Package harness replays scripted client sessions against a fresh
// in-memory database and records every frame as a trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario demonstrates"
//	tables:
//	  users:
//	    name: { type: string, required: true }
//	    email: { type: string }
//	steps:
//	  - session: alice
//	    connect: true
//	  - session: alice
//	    send: { type: subscribe, requestId: r1, table: users }
//	  - session: alice
//	    disconnect: true
//
// # Deterministic Replay
//
// Every run of a scenario produces byte-identical traces:
//
//   - Document ids come from a sequential generator (doc_001, ...)
//   - The engine clock is frozen, so pong timestamps never vary
//   - Trace serialization is canonical JSON (sorted keys)
//
// This makes traces comparable against golden files; see
// RunWithGolden.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/shoal/internal/db"
	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/engine"
	"github.com/roach88/shoal/internal/protocol"
	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
)

// traceEpoch is the frozen engine clock; pong receivedAt stamps are
// always this instant.
var traceEpoch = time.UnixMilli(1700000000000)

// TraceEvent is one frame crossing the engine boundary in either
// direction.
type TraceEvent struct {
	// Seq orders events across the whole run, starting at 1.
	Seq int64 `json:"seq"`

	// Session is the acting (send) or receiving (deliver) session.
	Session string `json:"session"`

	// Type is "connect", "send", "deliver", or "disconnect".
	Type string `json:"type"`

	// Message is the wire frame as a decoded map; nil for connect and
	// disconnect events.
	Message map[string]any `json:"message,omitempty"`
}

// Result is the recorded trace of a scenario run.
type Result struct {
	Trace []TraceEvent `json:"trace"`
}

// MarshalTrace renders the trace as canonical JSON under the scenario
// name. Equal runs produce equal bytes.
func (r *Result) MarshalTrace(scenarioName string) ([]byte, error) {
	events := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		eventMap := map[string]any{
			"seq":     ev.Seq,
			"session": ev.Session,
			"type":    ev.Type,
		}
		if ev.Message != nil {
			eventMap["message"] = ev.Message
		}
		events[i] = eventMap
	}

	return document.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"trace":    events,
	})
}

// seqIDGenerator yields doc_001, doc_002, ... so document ids are
// stable across runs.
type seqIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("doc_%03d", g.n)
}

// Run executes a scenario against a fresh in-memory database and
// returns the recorded trace.
func Run(scenario *Scenario) (*Result, error) {
	s, err := buildSchema(scenario.Tables)
	if err != nil {
		return nil, err
	}

	database := db.New(storage.NewMemory(), s,
		db.WithIDGenerator(&seqIDGenerator{}))

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	eng := engine.New(database, engine.WithNow(func() time.Time {
		return traceEpoch
	}))

	result := &Result{Trace: []TraceEvent{}}
	var seq int64

	record := func(session, eventType string, message map[string]any) {
		seq++
		result.Trace = append(result.Trace, TraceEvent{
			Seq:     seq,
			Session: session,
			Type:    eventType,
			Message: message,
		})
	}

	for i, step := range scenario.Steps {
		switch {
		case step.Connect:
			eng.RegisterSession(step.Session)
			record(step.Session, "connect", nil)

		case step.Disconnect:
			eng.UnregisterSession(step.Session)
			record(step.Session, "disconnect", nil)

		default:
			frame, err := json.Marshal(step.Send)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: encode send frame: %w", i, err)
			}

			sent, err := decodeTraceMessage(frame)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
			record(step.Session, "send", sent)

			for _, env := range eng.ProcessFrame(ctx, step.Session, frame) {
				out, err := protocol.EncodeServerMessage(env.Message)
				if err != nil {
					return nil, fmt.Errorf("steps[%d]: encode reply: %w", i, err)
				}
				delivered, err := decodeTraceMessage(out)
				if err != nil {
					return nil, fmt.Errorf("steps[%d]: %w", i, err)
				}
				record(env.SessionID, "deliver", delivered)
			}
		}
	}

	return result, nil
}

// buildSchema converts declared scenario tables into a schema. Field
// types are checked here as well, so scenarios constructed in code get
// the same guarantees as loaded ones.
func buildSchema(tables map[string]map[string]FieldSpec) (schema.Schema, error) {
	s := schema.Schema{Tables: make(map[string]schema.Table, len(tables))}

	for name, fields := range tables {
		tbl := schema.Table{
			Name:   name,
			Fields: make(map[string]schema.Field, len(fields)),
		}
		for field, spec := range fields {
			if !schema.ValidFieldType(schema.FieldType(spec.Type)) {
				return schema.Schema{}, fmt.Errorf("table %s, field %s: unknown type %q", name, field, spec.Type)
			}
			tbl.Fields[field] = schema.Field{
				Type:     schema.FieldType(spec.Type),
				Required: spec.Required,
			}
		}
		s.Tables[name] = tbl
	}

	return s, nil
}

// decodeTraceMessage parses a wire frame into the map form used in
// traces. Numbers decode as json.Number so the canonical trace keeps
// them verbatim.
func decodeTraceMessage(frame []byte) (map[string]any, error) {
	fields, err := document.UnmarshalFields(frame)
	if err != nil {
		return nil, fmt.Errorf("decode trace message: %w", err)
	}
	return fields, nil
}
