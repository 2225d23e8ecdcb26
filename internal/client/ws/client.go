package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"powplant/internal/domain"
	"powplant/internal/usecases"
)

type Client struct {
	cfg      *Config
	verifier usecases.VerifierUsecase
	logger   Logger
}

type Config struct {
	ServerAddr     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	Requests  int
	TargetPow uint32
	// MinPow is the lowest difficulty a response may carry. It is separate from
	// TargetPow because the server caps targets at its own maximum.
	MinPow    uint32
	Kind      uint32
	Content   string
	PubKey    string
}

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

func NewClient(
	cfg *Config,
	verifier usecases.VerifierUsecase,
	logger Logger,
) *Client {
	return &Client{
		cfg:      cfg,
		verifier: verifier,
		logger:   logger,
	}
}

func (c *Client) Start(ctx context.Context) error {
	_, err := c.Mine(ctx)
	return err
}

// Mine sends the configured number of requests over one connection, one at a time,
// and returns the verified responses.
func (c *Client) Mine(ctx context.Context) ([]*domain.PowResponse, error) {
	conn, err := c.connectWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	session := &ClientSession{
		conn:   conn,
		client: c,
	}
	defer session.Close()

	responses := make([]*domain.PowResponse, 0, c.cfg.Requests)
	for i := 0; i < c.cfg.Requests; i++ {
		req := domain.PowRequest{
			Event: domain.Event{
				CreatedAt: uint64(time.Now().Unix()),
				Kind:      c.cfg.Kind,
				Tags:      [][]string{},
				Content:   c.cfg.Content,
				PubKey:    c.cfg.PubKey,
			},
			TargetPow: c.cfg.TargetPow,
		}

		start := time.Now()
		resp, err := session.Request(ctx, req)
		if err != nil {
			return responses, err
		}

		nonce := resp.Event.Tags[len(resp.Event.Tags)-1][1]
		c.logger.Info("pow received",
			"request", i+1,
			"pow", resp.Pow,
			"nonce", nonce,
			"elapsed", time.Since(start))
		responses = append(responses, resp)
	}
	return responses, nil
}

func (c *Client) connectWithRetry(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Info("retrying connection",
				"attempt", attempt+1,
				"max_attempts", c.cfg.RetryAttempts+1)

			select {
			case <-ctx.Done():
				return nil, NewClientError("connect", ctx.Err(), "cancelled while waiting to retry")
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		conn, err := c.connect(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger.Error("connection failed", "attempt", attempt+1, "error", err)
		if !IsRetryableError(err) {
			return nil, err
		}
	}
	return nil, NewClientError("connect", ErrMaxRetriesExceeded, lastErr.Error())
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, serverURL(c.cfg.ServerAddr), nil)
	if err != nil {
		return nil, NewClientError("connect", err, "connection failed")
	}
	return conn, nil
}

// serverURL accepts either a ws:// or wss:// URL or a bare host:port.
func serverURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "ws://" + addr
}

type ClientSession struct {
	conn   *websocket.Conn
	client *Client
}

// Request sends req and waits for its response. Silence until RequestTimeout means the
// server dropped the request; the connection is unusable after that.
func (s *ClientSession) Request(ctx context.Context, req domain.PowRequest) (*domain.PowResponse, error) {
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	defer stop()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, NewClientError("Request", err, "encoding request failed")
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.client.cfg.RequestTimeout)); err != nil {
		return nil, NewClientError("Request", ErrWriteFailed, err.Error())
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, NewClientError("Request", ErrWriteFailed, err.Error())
	}
	s.client.logger.Debug("pow request sent", "target", req.TargetPow)

	if err := s.conn.SetReadDeadline(time.Now().Add(s.client.cfg.RequestTimeout)); err != nil {
		return nil, NewClientError("Request", ErrConnectionClosed, err.Error())
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewClientError("Request", ctx.Err(), "cancelled")
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, NewClientError("Request", ErrRequestDropped, s.client.cfg.RequestTimeout.String())
		}
		return nil, NewClientError("Request", ErrConnectionClosed, err.Error())
	}

	var resp domain.PowResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, NewClientError("Request", ErrInvalidResponse, err.Error())
	}
	if err := s.client.verifier.Verify(&resp, s.client.cfg.MinPow); err != nil {
		return nil, NewClientError("Request", fmt.Errorf("%w: %w", ErrInvalidResponse, err), "verification failed")
	}
	return &resp, nil
}

// Close says goodbye with a close frame before closing the connection.
func (s *ClientSession) Close() {
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err != nil {
		s.client.logger.Debug("close frame not sent", "error", err)
	}
	s.conn.Close()
}
