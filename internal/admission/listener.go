package admission

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"powplant/internal/metrics"
)

const maxAcceptBackoff = time.Second

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// Listener hands out connections only once a gate permit is held for them. Accept
// blocks while the gate is full, so pending clients wait in the backlog instead of
// being rejected.
type Listener struct {
	net.Listener
	gate    *Gate
	logger  Logger
	metrics *metrics.Metrics
}

func NewListener(inner net.Listener, gate *Gate, logger Logger, m *metrics.Metrics) *Listener {
	return &Listener{
		Listener: inner,
		gate:     gate,
		logger:   logger,
		metrics:  m,
	}
}

// Accept waits for the next connection and a free slot for it. Transient accept
// errors are logged and retried; a closed listener or gate ends the loop.
func (l *Listener) Accept() (net.Conn, error) {
	var backoff time.Duration
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, err
			}
			l.logger.Error("accept failed", "error", err)
			l.metrics.AcceptFailed()

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			time.Sleep(backoff)
			continue
		}

		permit, err := l.gate.Acquire(context.Background())
		if err != nil {
			conn.Close()
			return nil, err
		}
		l.logger.Debug("connection admitted", "remote", conn.RemoteAddr().String())
		return &Conn{Conn: conn, permit: permit}, nil
	}
}

// Close closes the gate and the underlying listener.
func (l *Listener) Close() error {
	l.gate.Close()
	return l.Listener.Close()
}

// Conn releases its permit when closed.
type Conn struct {
	net.Conn
	permit *Permit
	once   sync.Once
	err    error
}

func (c *Conn) Close() error {
	c.once.Do(func() {
		c.err = c.Conn.Close()
		c.permit.Release()
	})
	return c.err
}
