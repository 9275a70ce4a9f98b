// Package workerpool runs tasks on a fixed number of long-lived goroutines.
//
// The pool is created once at startup and shared by every upload, so the
// number of concurrent render jobs stays bounded no matter how many uploads
// are in flight. Submit blocks while the queue is full; it never drops work.
package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

const (
	defaultQueueFactor     = 16
	defaultShutdownTimeout = 30 * time.Second
)

// ErrPoolClosed is returned by Submit after Stop has been called.
var ErrPoolClosed = errors.NewStd("worker pool is closed")

// Task is a unit of work. ctx is cancelled when the pool stops.
type Task func(ctx context.Context)

// Stats tracks pool activity.
type Stats struct {
	Submitted int64
	Completed int64
	Panicked  int64
}

// Pool is a fixed-size worker pool.
type Pool struct {
	logger logger.Logger

	// Lifecycle management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	// closed and the close of jobs are guarded by mu so Submit never sends
	// on a closed channel.
	mu      sync.RWMutex
	closed  bool
	jobs    chan Task
	workers int

	statsMu sync.Mutex
	stats   Stats

	shutdownTimeout time.Duration
}

// Option configures a Pool.
type Option func(*Pool)

// WithQueueSize sets the number of tasks that may wait for a worker.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.jobs = make(chan Task, n)
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for running tasks.
func WithShutdownTimeout(d time.Duration) Option {
	return func(p *Pool) { p.shutdownTimeout = d }
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// GetLogger returns the workerpool package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("workerpool")
}

// New creates a pool with the given number of workers. Call Start before
// submitting.
func New(workers int, opts ...Option) *Pool {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger:          GetLogger(),
		ctx:             ctx,
		cancel:          cancel,
		jobs:            make(chan Task, workers*defaultQueueFactor),
		workers:         workers,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. Subsequent calls are no-ops.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool",
			logger.Int("workers", p.workers),
			logger.Int("queue_size", cap(p.jobs)))
		for i := range p.workers {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

// Submit queues task, blocking while the queue is full. It fails when ctx
// is done or the pool has been stopped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.Newf("cannot submit nil task").
			Component("workerpool").
			Category(errors.CategoryValidation).
			Build()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- task:
		p.statsMu.Lock()
		p.stats.Submitted++
		p.statsMu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Stop cancels the pool context, lets workers drain the queue and waits up
// to the shutdown timeout for them to exit.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("stopping worker pool")

		// unblock Submit calls waiting on a full queue before taking the lock
		p.cancel()

		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("worker pool stopped gracefully")
		case <-time.After(p.shutdownTimeout):
			p.logger.Warn("worker pool shutdown timeout",
				logger.Duration("timeout", p.shutdownTimeout))
		}

		stats := p.Stats()
		p.logger.Info("worker pool final stats",
			logger.Int64("submitted", stats.Submitted),
			logger.Int64("completed", stats.Completed),
			logger.Int64("panicked", stats.Panicked))
	})
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// worker runs queued tasks until the queue is closed. Tasks still queued at
// shutdown run with a cancelled context.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", logger.Int("worker_id", id))
	for task := range p.jobs {
		p.run(id, task)
	}
	p.logger.Debug("worker stopping", logger.Int("worker_id", id))
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		r := recover()
		p.statsMu.Lock()
		if r != nil {
			p.stats.Panicked++
		} else {
			p.stats.Completed++
		}
		p.statsMu.Unlock()

		if r != nil {
			err := errors.New(fmt.Errorf("task panicked: %v", r)).
				Component("workerpool").
				Category(errors.CategoryWorker).
				Context("worker_id", id).
				Build()
			p.logger.Error("recovered panic in worker",
				logger.Error(err),
				logger.String("stack", string(debug.Stack())))
		}
	}()
	task(p.ctx)
}
