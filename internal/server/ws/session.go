package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"powplant/internal/domain"
	"powplant/internal/metrics"
	"powplant/internal/usecases"
	"powplant/internal/worker"
)

// Session is the message loop of one upgraded connection. Requests are handled one at
// a time, in arrival order.
type Session struct {
	conn   *websocket.Conn
	server *Server
	logger Logger
}

// Handle reads messages until the client closes the connection or the transport fails.
// A client initiated close is not an error.
func (s *Session) Handle() error {
	if s.server.cfg.ReadLimit > 0 {
		s.conn.SetReadLimit(s.server.cfg.ReadLimit)
	}
	s.conn.SetPingHandler(s.handlePing)

	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				s.logger.Info("client initiated close", "code", closeErr.Code)
				return nil
			}
			return NewConnectionError("Handle", fmt.Errorf("%w: %w", ErrTransportRead, err), "reading message failed")
		}

		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if err := s.handleRequest(payload); err != nil {
				return err
			}
		}
	}
}

// handlePing answers a ping with a pong echoing its payload.
func (s *Session) handlePing(payload string) error {
	s.logger.Debug("ping received", "size", len(payload))

	err := s.conn.WriteControl(websocket.PongMessage, []byte(payload), s.writeDeadline())
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return err
}

// handleRequest mines one request and writes the response. A request that cannot be
// served is logged and dropped without a reply; only a failed write is returned.
func (s *Session) handleRequest(payload []byte) error {
	req, err := decodeRequest(payload)
	if err != nil {
		s.drop(NewConnectionError("handleRequest", err, "decoding request failed"))
		return nil
	}

	requested := req.TargetPow
	req.TargetPow = usecases.EffectiveDifficulty(req.TargetPow, s.server.cfg.DefaultDifficulty, s.server.cfg.MaxDifficulty)
	s.logger.Info("pow request received", "requested", requested, "target", req.TargetPow)

	start := time.Now()
	resp, err := worker.Do(context.Background(), s.server.pool, func() (*domain.PowResponse, error) {
		return s.server.powUsecase.Perform(req)
	})
	if err != nil {
		s.drop(NewConnectionError("handleRequest", err, fmt.Sprintf("target %d", req.TargetPow)))
		return nil
	}
	elapsed := time.Since(start)

	data, err := json.MarshalNoEscape(resp)
	if err != nil {
		s.drop(NewConnectionError("handleRequest", err, "encoding response failed"))
		return nil
	}

	if err := s.conn.SetWriteDeadline(s.writeDeadline()); err != nil {
		return NewConnectionError("handleRequest", fmt.Errorf("%w: %w", ErrTransportWrite, err), "setting write deadline failed")
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return NewConnectionError("handleRequest", fmt.Errorf("%w: %w", ErrTransportWrite, err), "write response failed")
	}

	s.server.metrics.RecordRequest(metrics.OutcomeOK)
	s.server.metrics.ObserveSearch(elapsed, resp.Pow)
	s.logger.Info("pow response sent", "pow", resp.Pow, "elapsed", elapsed)
	return nil
}

func (s *Session) drop(err error) {
	outcome := requestOutcome(err)
	s.server.metrics.RecordRequest(outcome)
	s.logger.Error("pow request dropped", "outcome", outcome, "error", err)
}

// writeDeadline is the deadline for the next write, or none when no timeout is set.
func (s *Session) writeDeadline() time.Time {
	if s.server.cfg.WriteTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.server.cfg.WriteTimeout)
}
