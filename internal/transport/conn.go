package transport

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// writeTimeout bounds a single frame write. A peer that stops reading
// loses its connection instead of wedging the writer goroutine.
const writeTimeout = 10 * time.Second

// session binds one TCP connection to its session id and outbound
// frame queue. The write loop is the only goroutine that writes to
// the connection.
type session struct {
	id     string
	conn   net.Conn
	outbox *queue[[]byte]
}

func newSession(id string, conn net.Conn) *session {
	return &session{
		id:     id,
		conn:   conn,
		outbox: newQueue[[]byte](),
	}
}

// writeLoop drains the outbox onto the connection, one newline-framed
// message per item. It returns when the outbox is closed and drained,
// the context ends, or a write fails. A failed write closes the
// connection, which unwinds the session's read loop too.
func (s *session) writeLoop(ctx context.Context) {
	for {
		frame, ok := s.outbox.TryDequeue()
		if ok {
			if err := s.write(frame); err != nil {
				slog.Debug("write failed", "session", s.id, "error", err)
				s.conn.Close()
				return
			}
			framesWritten.Inc()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-s.outbox.Wait():
			if s.outbox.Closed() && s.outbox.Len() == 0 {
				return
			}
		}
	}
}

// write sends one frame with its trailing newline in a single Write
// call under a fresh deadline.
func (s *session) write(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, '\n')

	_, err := s.conn.Write(buf)
	return err
}
