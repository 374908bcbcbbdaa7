package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roach88/shoal/internal/db"
	"github.com/roach88/shoal/internal/protocol"
)

// Engine routes client messages to the database and fans change
// notifications out to subscribed sessions.
//
// Thread-safety model:
//   - RegisterSession / UnregisterSession: safe from any goroutine
//   - Process / ProcessFrame: safe from any goroutine; the engine
//     mutex serializes them
//
// INVARIANTS:
//   - subscribers only ever contains registered sessions
//     (UnregisterSession prunes, Process rejects unregistered senders)
//   - broadcast order is ascending session id, same message for all
type Engine struct {
	mu          sync.Mutex
	db          *db.Database
	sessions    map[string]struct{}
	subscribers map[string]map[string]struct{} // table -> session ids
	now         func() time.Time
}

// Option configures optional engine parameters.
type Option func(*Engine)

// WithNow overrides the wall clock used to stamp pong replies.
// Harness runs pass a fixed clock for reproducible traces.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine on top of the given database.
func New(database *db.Database, opts ...Option) *Engine {
	e := &Engine{
		db:          database,
		sessions:    make(map[string]struct{}),
		subscribers: make(map[string]map[string]struct{}),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegisterSession adds a session to the registry. Registering a
// session that is already registered is a no-op.
func (e *Engine) RegisterSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[sessionID]; ok {
		return
	}
	e.sessions[sessionID] = struct{}{}

	slog.Debug("session registered", "session", sessionID)
}

// UnregisterSession removes a session and every subscription it holds.
// Unregistering an unknown session is a no-op.
func (e *Engine) UnregisterSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[sessionID]; !ok {
		return
	}
	delete(e.sessions, sessionID)

	for table, subs := range e.subscribers {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(e.subscribers, table)
		}
	}

	slog.Debug("session unregistered", "session", sessionID)
}

// ProcessFrame decodes one wire frame and processes it. A frame that
// fails to decode becomes a single BAD_REQUEST envelope addressed to
// the sender, with the requestId recovered from the frame when
// possible and "unknown" otherwise.
func (e *Engine) ProcessFrame(ctx context.Context, sessionID string, frame []byte) []protocol.Envelope {
	msg, err := protocol.DecodeClientMessage(frame)
	if err != nil {
		requestID := "unknown"
		var decErr *protocol.DecodeError
		if errors.As(err, &decErr) && decErr.RequestID != "" {
			requestID = decErr.RequestID
		}

		slog.Debug("frame rejected", "session", sessionID, "error", err)
		return []protocol.Envelope{{
			SessionID: sessionID,
			Message:   protocol.NewError(requestID, protocol.CodeBadRequest, err.Error(), nil),
		}}
	}

	return e.Process(ctx, sessionID, msg)
}

// Process handles one client message and returns every envelope it
// produces: replies addressed to the sender first, then change
// broadcasts to subscribers. Failures come back as error envelopes,
// never as Go errors, and a failed action broadcasts nothing.
//
// Messages from unregistered sessions are rejected before dispatch.
func (e *Engine) Process(ctx context.Context, sessionID string, msg protocol.ClientMessage) []protocol.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[sessionID]; !ok {
		return []protocol.Envelope{{
			SessionID: sessionID,
			Message:   protocol.NewError(protocol.RequestIDOf(msg), protocol.CodeBadRequest, "session is not registered", nil),
		}}
	}

	switch m := msg.(type) {
	case protocol.Subscribe:
		return e.handleSubscribe(ctx, sessionID, m)
	case protocol.Unsubscribe:
		return e.handleUnsubscribe(sessionID, m)
	case protocol.Insert:
		return e.handleInsert(ctx, sessionID, m)
	case protocol.Delete:
		return e.handleDelete(ctx, sessionID, m)
	case protocol.Get:
		return e.handleGet(ctx, sessionID, m)
	case protocol.List:
		return e.handleList(ctx, sessionID, m)
	case protocol.Ping:
		return e.handlePing(sessionID, m)
	default:
		return []protocol.Envelope{{
			SessionID: sessionID,
			Message:   protocol.NewError(protocol.RequestIDOf(msg), protocol.CodeBadRequest, "unsupported message", nil),
		}}
	}
}

// handleSubscribe captures the snapshot before recording the
// subscription, so subscribing to an unknown table leaves no
// subscription behind.
func (e *Engine) handleSubscribe(ctx context.Context, sessionID string, m protocol.Subscribe) []protocol.Envelope {
	docs, err := e.db.List(ctx, m.Table)
	if err != nil {
		return e.errorEnvelope(sessionID, m.RequestID, err)
	}

	subs, ok := e.subscribers[m.Table]
	if !ok {
		subs = make(map[string]struct{})
		e.subscribers[m.Table] = subs
	}
	subs[sessionID] = struct{}{}

	return []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.NewAck(m.RequestID, protocol.TypeSubscribe)},
		{SessionID: sessionID, Message: protocol.Snapshot{Table: m.Table, Documents: docs}},
	}
}

// handleUnsubscribe acks whether or not the subscription existed.
// Either way the session ends up not subscribed.
func (e *Engine) handleUnsubscribe(sessionID string, m protocol.Unsubscribe) []protocol.Envelope {
	if subs, ok := e.subscribers[m.Table]; ok {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(e.subscribers, m.Table)
		}
	}

	return []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.NewAck(m.RequestID, protocol.TypeUnsubscribe)},
	}
}

func (e *Engine) handleInsert(ctx context.Context, sessionID string, m protocol.Insert) []protocol.Envelope {
	doc, err := e.db.Insert(ctx, m.Table, m.Value.ID, m.Value.Fields)
	if err != nil {
		return e.errorEnvelope(sessionID, m.RequestID, err)
	}

	out := []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.NewResult(m.RequestID, protocol.TypeInsert, doc)},
	}
	return e.broadcast(out, m.Table, protocol.Change{
		Table:    m.Table,
		Op:       protocol.TypeInsert,
		Document: &doc,
	})
}

// deletePayload is the result payload for a delete: the id that was
// removed.
type deletePayload struct {
	ID string `json:"id"`
}

func (e *Engine) handleDelete(ctx context.Context, sessionID string, m protocol.Delete) []protocol.Envelope {
	if err := e.db.Delete(ctx, m.Table, m.ID); err != nil {
		return e.errorEnvelope(sessionID, m.RequestID, err)
	}

	out := []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.NewResult(m.RequestID, protocol.TypeDelete, deletePayload{ID: m.ID})},
	}
	return e.broadcast(out, m.Table, protocol.Change{
		Table: m.Table,
		Op:    protocol.TypeDelete,
		ID:    m.ID,
	})
}

func (e *Engine) handleGet(ctx context.Context, sessionID string, m protocol.Get) []protocol.Envelope {
	doc, err := e.db.Get(ctx, m.Table, m.ID)
	if err != nil {
		return e.errorEnvelope(sessionID, m.RequestID, err)
	}

	return []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.NewResult(m.RequestID, protocol.TypeGet, doc)},
	}
}

func (e *Engine) handleList(ctx context.Context, sessionID string, m protocol.List) []protocol.Envelope {
	docs, err := e.db.List(ctx, m.Table)
	if err != nil {
		return e.errorEnvelope(sessionID, m.RequestID, err)
	}

	return []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.NewResult(m.RequestID, protocol.TypeList, docs)},
	}
}

func (e *Engine) handlePing(sessionID string, m protocol.Ping) []protocol.Envelope {
	return []protocol.Envelope{
		{SessionID: sessionID, Message: protocol.Pong{
			RequestID:  m.RequestID,
			SentAt:     m.SentAt,
			ReceivedAt: e.now().UnixMilli(),
		}},
	}
}

// broadcast appends one change envelope per registered subscriber of
// table, in ascending session-id order. The sender receives the
// change too when it is subscribed.
func (e *Engine) broadcast(out []protocol.Envelope, table string, change protocol.Change) []protocol.Envelope {
	subs := e.subscribers[table]
	if len(subs) == 0 {
		return out
	}

	ids := make([]string, 0, len(subs))
	for id := range subs {
		if _, active := e.sessions[id]; !active {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		out = append(out, protocol.Envelope{SessionID: id, Message: change})
	}
	return out
}
