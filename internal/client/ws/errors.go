package ws

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Protocol errors
	ErrInvalidResponse = errors.New("invalid pow response")

	// Connection errors
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteFailed      = errors.New("write request failed")

	// The server answers nothing for requests it cannot serve.
	ErrRequestDropped = errors.New("no response before timeout, request dropped")

	// System errors
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
)

type ClientError struct {
	Op   string
	Err  error
	Info string
}

func (e *ClientError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Info)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func NewClientError(op string, err error, info string) error {
	return &ClientError{
		Op:   op,
		Err:  err,
		Info: info,
	}
}

// IsRetryableError reports whether dialing again may help.
func IsRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var clientErr *ClientError
	return errors.As(err, &clientErr) && !errors.Is(err, ErrInvalidResponse)
}
