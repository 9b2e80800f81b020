// Package session serves one terminal connection.
//
// A Session reads one command, dispatches it, writes the whole response and
// only then reads the next command. It ends on QUIT, on any transport error
// or when its context is cancelled; ending a session only releases its own
// connection.
package session

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"tablepos/internal/pkg/log"
	"tablepos/internal/pkg/protocol"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

const drainTimeout = 500 * time.Millisecond

// Dispatcher answers a command received on a session.
type Dispatcher interface {
	Handle(ctx context.Context, s *Session, cmd protocol.Command) protocol.Response
}

// Session is the state of one terminal connection.
type Session struct {
	id     uuid.UUID
	conn   net.Conn
	reader *protocol.Reader

	dispatcher   Dispatcher
	idleTimeout  time.Duration
	writeTimeout time.Duration
	maxLine      int

	mu   sync.RWMutex
	role Role

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Cfg configures a Session.
type Cfg func(*Session) error

// WithIdleTimeout closes the session if no command arrives within d.
func WithIdleTimeout(d time.Duration) Cfg {
	return func(s *Session) error {
		s.idleTimeout = d
		return nil
	}
}

// WithWriteTimeout bounds the time spent writing one response.
func WithWriteTimeout(d time.Duration) Cfg {
	return func(s *Session) error {
		s.writeTimeout = d
		return nil
	}
}

// WithMaxLineLength sets the longest accepted command line.
func WithMaxLineLength(n int) Cfg {
	return func(s *Session) error {
		if n <= 0 {
			return errors.Errorf("invalid max line length %d", n)
		}
		s.maxLine = n
		return nil
	}
}

// New creates a Session on conn that answers commands with d.
func New(conn net.Conn, d Dispatcher, cfgs ...Cfg) (*Session, error) {
	s := &Session{
		id:         uuid.New(),
		conn:       conn,
		dispatcher: d,
		maxLine:    protocol.MaxLineLength,
		role:       RoleUnknown,
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Session cfg failed")
		}
	}
	s.reader = protocol.NewReader(conn, s.maxLine)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// RemoteAddr returns the terminal's address.
func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Role returns the role declared with AUTH, RoleUnknown before that.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole records the declared role.
func (s *Session) SetRole(r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = r
}

// Logger returns a logger carrying the session's fields.
func (s *Session) Logger() logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"session": s.id.String(),
		"remote":  s.RemoteAddr(),
		"role":    string(s.Role()),
	})
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Serve runs the request/response loop until the terminal quits, the
// connection fails or ctx is cancelled. A terminal hanging up or the
// context ending is not an error.
func (s *Session) Serve(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if ctx.Err() != nil {
		s.Close()
		return nil
	}
	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()
	defer s.Close()

	s.Logger().Info("terminal connected")
	for {
		if s.idleTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
				return s.transportError(ctx, err, "set read deadline failed")
			}
		}
		cmd, err := s.reader.ReadCommand()
		if errors.Is(err, io.EOF) {
			s.Logger().Info("terminal disconnected")
			return nil
		}
		if errors.Is(err, protocol.ErrLineTooLong) {
			// the rest of the line cannot be told apart from the next command
			s.Logger().Warn("command too long, closing")
			if err := s.write(protocol.Error(protocol.ReasonCommandTooLong)); err != nil {
				return s.transportError(ctx, err, "write response failed")
			}
			s.drain()
			return nil
		}
		if err != nil {
			return s.transportError(ctx, err, "read command failed")
		}
		s.Logger().WithFields(log.CommandToFields(cmd)).Info("received command")

		resp := s.dispatcher.Handle(ctx, s, cmd)
		if err := s.write(resp); err != nil {
			return s.transportError(ctx, err, "write response failed")
		}
		s.Logger().WithFields(log.ResponseToFields(resp)).Info("sent response")
		if resp.Close {
			s.Logger().Info("terminal quit")
			return nil
		}
	}
}

func (s *Session) write(resp protocol.Response) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return protocol.WriteResponse(s.conn, resp)
}

// drain discards unread input for a moment before the session closes, so
// the terminal receives the last response instead of a connection reset.
func (s *Session) drain() {
	if cw, ok := s.conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}
	s.conn.SetReadDeadline(time.Now().Add(drainTimeout))
	io.Copy(io.Discard, s.conn)
}

// transportError logs err and reports it unless the session was stopped on purpose.
func (s *Session) transportError(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		s.Logger().Info("session stopped")
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.Logger().WithError(err).Warn("terminal timed out, closing")
		return nil
	}
	s.Logger().WithError(err).Warn(msg)
	return errors.Wrap(err, msg)
}
