// Package worker runs CPU bound jobs on a fixed set of goroutines, apart from the
// goroutines that read and write connections.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

var (
	ErrOffload     = errors.New("offload failed")
	ErrPoolClosed  = fmt.Errorf("%w: worker pool closed", ErrOffload)
	ErrJobPanicked = fmt.Errorf("%w: job panicked", ErrOffload)
)

// Pool is a fixed size set of workers. A job handed to a worker always runs to
// completion; there is no cancellation once it has started.
type Pool struct {
	size      int
	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewPool starts size workers. A size below one means one worker per CPU.
func NewPool(size int) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		size: size,
		jobs: make(chan func()),
		done: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) work() {
	for {
		select {
		case <-p.done:
			return
		case job := <-p.jobs:
			job()
		}
	}
}

// Close stops accepting jobs. Workers finish the job they are running, then exit.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// Do runs fn on a worker of p and waits for its result. ctx only bounds the wait for a
// free worker. Failures of the pool itself wrap ErrOffload; errors returned by fn are
// passed through untouched.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	var zero T
	resCh := make(chan result, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- result{err: fmt.Errorf("%w: %v", ErrJobPanicked, r)}
			}
		}()
		v, err := fn()
		resCh <- result{value: v, err: err}
	}

	select {
	case <-p.done:
		return zero, ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
	case <-p.done:
		return zero, ErrPoolClosed
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %w", ErrOffload, ctx.Err())
	}

	res := <-resCh
	return res.value, res.err
}
