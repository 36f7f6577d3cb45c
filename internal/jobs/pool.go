package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type job struct {
	name string
	fn   func(ctx context.Context) error
}

// Pool runs background work off the request path. Each job gets its own
// timeout, and a failing or panicking job is logged and otherwise ignored.
type Pool struct {
	Logger     zerolog.Logger
	JobTimeout time.Duration

	queue  chan job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewPool(workers, queueSize int, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		Logger:     logger,
		JobTimeout: 2 * time.Minute,
		queue:      make(chan job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues fn without blocking. It returns false when the queue is
// full or the pool is stopped; the job is dropped in that case.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.Logger.Warn().Str("job", name).Msg("job rejected: pool stopped")
		return false
	}
	select {
	case p.queue <- job{name: name, fn: fn}:
		return true
	default:
		p.Logger.Warn().Str("job", name).Int("queue", cap(p.queue)).Msg("job dropped: queue full")
		return false
	}
}

// Stop stops accepting jobs and waits for queued ones to finish. If ctx
// expires first, running jobs are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(p.ctx, p.JobTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				p.Logger.Error().Str("job", j.name).Bytes("stack", debug.Stack()).Msg("job panicked")
			}
		}()
		return j.fn(ctx)
	}()

	if err != nil {
		p.Logger.Warn().Err(err).Str("job", j.name).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	p.Logger.Debug().Str("job", j.name).Dur("took", time.Since(start)).Msg("job done")
}
