// Package transport serves the newline-delimited JSON protocol over
// TCP.
//
// Each accepted connection becomes one session: a reader goroutine
// feeds inbound frames into the server's command queue, and a writer
// goroutine drains the session's outbox back onto the wire. A single
// dispatch goroutine consumes the command queue, runs the engine, and
// routes the resulting envelopes to their sessions' outboxes, so every
// session observes changes in the order the engine produced them.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/shoal/internal/db"
	"github.com/roach88/shoal/internal/engine"
	"github.com/roach88/shoal/internal/protocol"
)

const (
	// initialScanBuffer is the starting read buffer per connection.
	initialScanBuffer = 64 * 1024
	// maxFrameBytes caps a single inbound frame. Larger frames fail
	// the scan and drop the connection.
	maxFrameBytes = 1 << 20
)

// command is one inbound frame tagged with its sender.
type command struct {
	sessionID string
	frame     []byte
}

// Server accepts TCP connections and bridges them to the engine.
type Server struct {
	addr       string
	engine     *engine.Engine
	sessionIDs db.IDGenerator

	mu       sync.Mutex
	listener net.Listener

	sessions *xsync.MapOf[string, *session]
	inbound  *queue[command]
}

// Option configures optional server parameters.
type Option func(*Server)

// WithSessionIDGenerator overrides the session id source.
// Tests use this for predictable ids.
func WithSessionIDGenerator(gen db.IDGenerator) Option {
	return func(s *Server) {
		s.sessionIDs = gen
	}
}

// New creates a Server for addr on top of eng.
func New(eng *engine.Engine, addr string, opts ...Option) *Server {
	s := &Server{
		addr:       addr,
		engine:     eng,
		sessionIDs: db.UUIDv7Generator{},
		sessions:   xsync.NewMapOf[string, *session](),
		inbound:    newQueue[command](),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the bound listen address once Serve is up, nil before.
// Callers that bind to port zero read the real address back here.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve listens on the configured address and blocks until the
// context is cancelled. On shutdown it stops accepting, closes every
// live connection, and waits for the per-session goroutines and the
// dispatcher to finish.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	slog.Info("server listening", "addr", ln.Addr().String())

	// Closing the listener unblocks Accept when the context ends.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.dispatchLoop(ctx)
	}()

	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Error("accept failed", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, netConn)
		}()
	}

	// Stop feeding the dispatcher, then drop every live connection so
	// the reader goroutines unwind.
	s.inbound.Close()
	s.sessions.Range(func(_ string, sess *session) bool {
		sess.conn.Close()
		return true
	})
	wg.Wait()

	slog.Info("server stopped")
	return ctx.Err()
}

// handle owns one connection from accept to teardown.
func (s *Server) handle(ctx context.Context, netConn net.Conn) {
	sessionID := s.sessionIDs.Generate()
	sess := newSession(sessionID, netConn)

	s.sessions.Store(sessionID, sess)
	s.engine.RegisterSession(sessionID)
	connectionsTotal.Inc()

	slog.Info("session connected",
		"session", sessionID,
		"remote", netConn.RemoteAddr().String(),
	)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writeLoop(ctx)
	}()

	scanner := bufio.NewScanner(netConn)
	scanner.Buffer(make([]byte, initialScanBuffer), maxFrameBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		// The scanner reuses its buffer between reads; the frame must
		// outlive this iteration.
		frame := make([]byte, len(line))
		copy(frame, line)

		framesRead.Inc()
		if !s.inbound.Enqueue(command{sessionID: sessionID, frame: frame}) {
			break
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		slog.Debug("read failed", "session", sessionID, "error", err)
	}

	s.engine.UnregisterSession(sessionID)
	s.sessions.Delete(sessionID)
	sess.outbox.Close()
	netConn.Close()
	<-writerDone

	slog.Info("session disconnected", "session", sessionID)
}

// dispatchLoop consumes inbound commands one at a time. Running the
// engine and routing its envelopes from a single goroutine keeps
// delivery order aligned with processing order for every session.
func (s *Server) dispatchLoop(ctx context.Context) {
	for {
		cmd, ok := s.inbound.TryDequeue()
		if ok {
			for _, env := range s.engine.ProcessFrame(ctx, cmd.sessionID, cmd.frame) {
				s.deliver(env)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-s.inbound.Wait():
			if s.inbound.Closed() && s.inbound.Len() == 0 {
				return
			}
		}
	}
}

// deliver routes one envelope to its session's outbox. Envelopes for
// sessions that disconnected between fanout and delivery are dropped.
func (s *Server) deliver(env protocol.Envelope) {
	sess, ok := s.sessions.Load(env.SessionID)
	if !ok {
		framesDropped.Inc()
		return
	}

	frame, err := protocol.EncodeServerMessage(env.Message)
	if err != nil {
		slog.Error("encode failed", "session", env.SessionID, "error", err)
		return
	}

	if !sess.outbox.Enqueue(frame) {
		framesDropped.Inc()
	}
}
