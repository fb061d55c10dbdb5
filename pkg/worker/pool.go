package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/metrics"
)

const (
	// DefaultWorkers is the default number of concurrent deposit tasks
	DefaultWorkers = 4

	// DefaultDrainTimeout bounds the wait for in-flight tasks on
	// shutdown
	DefaultDrainTimeout = 10 * time.Second
)

// ErrPoolSaturated reports a task rejected because the queue was full.
// Callers surface this through the error handler so the deposit is
// marked failed rather than silently dropped.
var ErrPoolSaturated = errors.New("worker: pool queue full")

// ErrPoolClosed reports a task submitted after Drain
var ErrPoolClosed = errors.New("worker: pool closed")

// Pool executes deposit tasks on a bounded set of workers fed by a
// bounded queue
type Pool struct {
	tasks   chan *Task
	workers int

	mu     sync.Mutex
	closed bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewPool creates a pool with the given worker count and queue depth
func NewPool(workers, queueDepth int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if queueDepth < 1 {
		queueDepth = workers * 2
	}
	return &Pool{
		tasks:   make(chan *Task, queueDepth),
		workers: workers,
		logger:  log.WithComponent("pool"),
	}
}

// Start launches the workers. They run until ctx is cancelled or the
// pool is drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					metrics.PoolQueueDepth.Set(float64(len(p.tasks)))
					task.Run(ctx)
				}
			}
		}()
	}
}

// Submit enqueues a task without blocking. A full queue rejects the
// task with ErrPoolSaturated.
func (p *Pool) Submit(task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		metrics.PoolQueueDepth.Set(float64(len(p.tasks)))
		return nil
	default:
		metrics.PoolRejectionsTotal.Inc()
		return ErrPoolSaturated
	}
}

// Drain stops accepting tasks and waits up to timeout for in-flight
// work to finish
func (p *Pool) Drain(timeout time.Duration) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		p.logger.Warn().Dur("timeout", timeout).Msg("drain timed out with tasks still in flight")
	}
}
