// Package worker provides the bounded goroutine pool used for fan-out work
// across many hosts.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// DefaultSize is the pool size used when none is configured.
const DefaultSize = 32

const shutdownTimeout = 30 * time.Second

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger
}

// NewPool creates a pool running at most size tasks at once. Submit blocks
// while the pool is full.
func NewPool(size int, logger *zap.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	panicHandler := func(p interface{}) {
		logger.Error("worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	ap, err := ants.NewPool(size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: ap, logger: logger}, nil
}

// Submit submits a context-aware task.
// The task receives the caller's context and should check ctx.Done() at blocking points.
// If the context is already cancelled, Submit returns ctx.Err() without submitting.
// A task whose context is cancelled while it is queued does not run.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := p.pool.Submit(func() {
		select {
		case <-ctx.Done():
			p.logger.Debug("task skipped: context cancelled", zap.Error(ctx.Err()))
			return
		default:
		}
		task(ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Running returns the number of tasks currently running.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Shutdown waits for running tasks and releases the pool.
func (p *Pool) Shutdown() {
	if err := p.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		p.logger.Warn("worker pool shutdown timeout", zap.Error(err))
	}
}
