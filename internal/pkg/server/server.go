package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"tablepos/internal/pkg/session"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// StatusReporter is told whether the server is accepting terminals.
type StatusReporter interface {
	SetServing(serving bool)
}

// Server accepts terminal connections and serves each on its own goroutine.
type Server struct {
	dispatcher  session.Dispatcher
	sessionCfgs []session.Cfg
	maxSessions int64
	status      StatusReporter

	sem      *semaphore.Weighted
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
	wg       sync.WaitGroup
	addr     net.Addr
	ready    chan struct{}
	started  atomic.Bool
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithDispatcher sets the command dispatcher shared by all sessions.
func WithDispatcher(d session.Dispatcher) Cfg {
	return func(s *Server) error {
		s.dispatcher = d
		return nil
	}
}

// WithSessionCfgs applies cfgs to every session.
func WithSessionCfgs(cfgs ...session.Cfg) Cfg {
	return func(s *Server) error {
		s.sessionCfgs = append(s.sessionCfgs, cfgs...)
		return nil
	}
}

// WithMaxSessions bounds the number of terminals served at once.
// Further connections wait in the listen backlog.
func WithMaxSessions(n int64) Cfg {
	return func(s *Server) error {
		if n <= 0 {
			return errors.Errorf("invalid max sessions %d", n)
		}
		s.maxSessions = n
		return nil
	}
}

// WithStatusReporter reports accept loop state to r.
func WithStatusReporter(r StatusReporter) Cfg {
	return func(s *Server) error {
		s.status = r
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	server := &Server{
		maxSessions: 256,
		sessions:    make(map[uuid.UUID]*session.Session),
		ready:       make(chan struct{}),
	}
	for _, cfg := range cfgs {
		if err := cfg(server); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if server.dispatcher == nil {
		return nil, errors.New("server needs a dispatcher")
	}
	server.sem = semaphore.NewWeighted(server.maxSessions)
	return server, nil
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", addr)
	}
	return s.Serve(ctx, ln)
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address. It is nil until Ready is closed.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Active returns the number of sessions being served.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln and
// waits for every session to end. A Server serves once; later calls close ln
// and return ErrServerStarted.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.started.CompareAndSwap(false, true) {
		ln.Close()
		return ErrServerStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)
	s.setServing(true)
	defer s.setServing(false)
	logger.WithField("addr", ln.Addr().String()).Info("server listening")

	err := s.acceptLoop(ctx, ln)
	cancel()
	s.wg.Wait()
	logger.Info("server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil
		}
		conn, err := ln.Accept()
		if err != nil {
			s.sem.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				backoff = nextBackoff(backoff)
				logger.WithError(err).WithField("retry", backoff).Warn("accept failed")
				time.Sleep(backoff)
				continue
			}
			return errors.Wrap(err, "accept failed")
		}
		backoff = 0
		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.sem.Release(1)
	sess, err := session.New(conn, s.dispatcher, s.sessionCfgs...)
	if err != nil {
		logger.WithError(err).Error("new session failed")
		conn.Close()
		return
	}
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID())
		s.mu.Unlock()
	}()
	if err := sess.Serve(ctx); err != nil {
		sess.Logger().WithError(err).Warn("session ended with error")
	}
}

func (s *Server) setServing(serving bool) {
	if s.status != nil {
		s.status.SetServing(serving)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		return time.Second
	}
	return d
}
