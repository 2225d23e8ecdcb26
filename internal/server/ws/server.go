package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"powplant/internal/admission"
	"powplant/internal/metrics"
	"powplant/internal/usecases"
	"powplant/internal/worker"
)

type Server struct {
	cfg        *Config
	powUsecase usecases.PowUsecase
	pool       *worker.Pool
	metrics    *metrics.Metrics
	logger     Logger
	upgrader   websocket.Upgrader
	sessions   sync.WaitGroup
}

type Config struct {
	Address          string
	KeepAlive        time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	ReadLimit        int64
	MaxConnections   int64

	DefaultDifficulty uint32
	MaxDifficulty     uint32
}

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

func NewServer(cfg *Config, powUsecase usecases.PowUsecase, pool *worker.Pool, m *metrics.Metrics, logger Logger) *Server {
	return &Server{
		cfg:        cfg,
		powUsecase: powUsecase,
		pool:       pool,
		metrics:    m,
		logger:     logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			// Clients are programs, not browsers.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run binds the configured address and serves until ctx is done. A bind failure is
// returned immediately and wraps ErrBindFailure.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{
		KeepAlive: s.cfg.KeepAlive,
	}

	listener, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return NewConnectionError("Run", fmt.Errorf("%w: %w", ErrBindFailure, err), "failed to start listener")
	}

	s.logger.Info("server started", "address", listener.Addr().String(), "max_connections", s.cfg.MaxConnections)

	return s.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is done. Every connection holds an
// admission permit from before its handshake until it is closed; when all permits are
// taken the accept loop waits. Serve takes ownership of listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	gate := admission.NewGate(s.cfg.MaxConnections, s.metrics)
	admitted := admission.NewListener(listener, gate, s.logger, s.metrics)

	srv := &http.Server{
		Handler:           http.HandlerFunc(s.handleConnection),
		ReadHeaderTimeout: s.cfg.HandshakeTimeout,
	}
	// A connection that fails its handshake is closed instead of being kept alive
	// while holding a permit.
	srv.SetKeepAlivesEnabled(false)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(admitted)
	}()

	select {
	case err := <-errCh:
		gate.Close()
		if errors.Is(err, admission.ErrGateClosed) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return NewConnectionError("serve", err, "accept loop failed")
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	gate.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown failed", "error", NewConnectionError("serve", err, "pending handshakes dropped"))
	}
	<-errCh

	s.waitSessions(shutdownCtx)
	s.logger.Info("server is shutting down")
	return nil
}

// waitSessions waits for running sessions until ctx is done. Sessions still running
// after that are left to end with the process.
func (s *Server) waitSessions(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Info("sessions still running at shutdown")
	}
}

// handleConnection owns one client connection: handshake, then the message loop.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	s.sessions.Add(1)
	defer s.sessions.Done()

	logger := &sessionLogger{Logger: s.logger, id: uuid.New().String()}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("handshake failed",
			"remote", r.RemoteAddr,
			"error", NewConnectionError("handleConnection", ErrHandshakeFailure, err.Error()))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("connection close failed", "error", err)
		}
	}()

	logger.Info("connection opened", "remote", r.RemoteAddr)

	session := &Session{
		conn:   conn,
		server: s,
		logger: logger,
	}

	if err := session.Handle(); err != nil {
		if IsTransportError(err) {
			logger.Error("connection lost", "remote", r.RemoteAddr, "error", err)
			return
		}
		logger.Error("connection closed with error", "error", err)
		return
	}
	logger.Info("connection closed")
}

// sessionLogger tags every record with the session id.
type sessionLogger struct {
	Logger
	id string
}

func (l *sessionLogger) Error(msg string, args ...interface{}) {
	l.Logger.Error(msg, append([]interface{}{"session", l.id}, args...)...)
}

func (l *sessionLogger) Info(msg string, args ...interface{}) {
	l.Logger.Info(msg, append([]interface{}{"session", l.id}, args...)...)
}

func (l *sessionLogger) Debug(msg string, args ...interface{}) {
	l.Logger.Debug(msg, append([]interface{}{"session", l.id}, args...)...)
}
