// Package admission bounds the number of concurrently active connections.
package admission

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"powplant/internal/metrics"
)

var ErrGateClosed = errors.New("admission gate closed")

// Gate is a counting gate of connection slots. Once closed, it never admits again.
type Gate struct {
	sem     *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	metrics *metrics.Metrics
}

// Permit is one acquired slot. Release is idempotent.
type Permit struct {
	gate *Gate
	once sync.Once
}

// NewGate creates a gate with size slots. Sizes below one are raised to one.
func NewGate(size int64, m *metrics.Metrics) *Gate {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{
		sem:     semaphore.NewWeighted(size),
		ctx:     ctx,
		cancel:  cancel,
		metrics: m,
	}
}

// Acquire blocks until a slot is free, ctx is done or the gate is closed.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	if g.ctx.Err() != nil {
		return nil, ErrGateClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(g.ctx, cancel)
	defer stop()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		if g.ctx.Err() != nil {
			return nil, ErrGateClosed
		}
		return nil, err
	}
	if g.ctx.Err() != nil {
		g.sem.Release(1)
		return nil, ErrGateClosed
	}

	g.metrics.ConnectionAdmitted()
	return &Permit{gate: g}, nil
}

// Close permanently closes the gate. Pending and future acquisitions fail with
// ErrGateClosed; permits already handed out stay valid until released.
func (g *Gate) Close() {
	g.cancel()
}

// Release returns the slot to the gate.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.gate.sem.Release(1)
		p.gate.metrics.ConnectionReleased()
	})
}
