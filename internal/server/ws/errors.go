package ws

import (
	"errors"
	"fmt"

	"powplant/internal/metrics"
	"powplant/internal/usecases"
	"powplant/internal/worker"
	"powplant/pkg/pow/hashcash"
)

var (
	// Startup errors
	ErrBindFailure = errors.New("failed to bind listener")

	// Connection errors
	ErrHandshakeFailure = errors.New("websocket handshake failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")

	// Request errors
	ErrMalformedRequest = errors.New("malformed pow request")
)

// ServerError adds the failing operation and context to an error.
type ServerError struct {
	Op   string // Operation that failed
	Err  error  // Original error
	Info string // Additional context
}

func (e *ServerError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Info)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func NewConnectionError(op string, err error, info string) error {
	return &ServerError{
		Op:   op,
		Err:  err,
		Info: info,
	}
}

// IsTransportError reports whether err ends the connection it happened on.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransportRead) || errors.Is(err, ErrTransportWrite) || errors.Is(err, ErrHandshakeFailure)
}

// requestOutcome classifies a dropped request for metrics.
func requestOutcome(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return metrics.OutcomeMalformed
	case errors.Is(err, usecases.ErrFieldNotFound):
		return metrics.OutcomeFieldNotFound
	case errors.Is(err, hashcash.ErrSearchExhausted):
		return metrics.OutcomeExhausted
	case errors.Is(err, worker.ErrOffload):
		return metrics.OutcomeOffloadFailed
	default:
		return metrics.OutcomeFailed
	}
}
