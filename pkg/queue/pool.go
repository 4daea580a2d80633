package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"TravelFX/pkg/logger"
)

// Pool is a fixed-size worker pool fed by a bounded queue.
type Pool struct {
	logger  *logger.Logger
	config  *QueueConfig
	tasks   chan *task
	quit    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	onDepth func(depth int)
}

// PoolOption configures Pool.
type PoolOption func(*Pool)

// WithDepthObserver is called with the queue depth after every enqueue and dequeue.
func WithDepthObserver(fn func(depth int)) PoolOption {
	return func(p *Pool) { p.onDepth = fn }
}

func NewPool(lgr *logger.Logger, config *QueueConfig, opts ...PoolOption) *Pool {
	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		logger: lgr,
		config: cfg,
		tasks:  make(chan *task, cfg.QueueSize),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("worker pool started",
		logger.Int("workers", p.config.Workers),
		logger.Int("queue_size", p.config.QueueSize))
}

// Submit enqueues fn and returns a channel that receives its result exactly once.
// When the queue is full Submit waits up to SubmitTimeout, then gives up with
// ErrPoolSaturated. The caller may stop waiting on the channel at any time; the
// task still runs to completion.
func (p *Pool) Submit(ctx context.Context, name string, fn Task) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return nil, ErrPoolClosed
	}

	t := &task{name: name, fn: fn, done: make(chan error, 1), enqueued: time.Now()}

	select {
	case p.tasks <- t:
		p.observeDepth()
		return t.done, nil
	default:
	}

	if p.config.SubmitTimeout <= 0 {
		return nil, ErrPoolSaturated
	}

	timer := time.NewTimer(p.config.SubmitTimeout)
	defer timer.Stop()

	select {
	case p.tasks <- t:
		p.observeDepth()
		return t.done, nil
	case <-timer.C:
		return nil, ErrPoolSaturated
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Depth is the number of queued tasks not yet picked up by a worker.
func (p *Pool) Depth() int {
	return len(p.tasks)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return
		case t := <-p.tasks:
			p.observeDepth()
			p.run(id, t)
		}
	}
}

func (p *Pool) run(worker int, t *task) {
	start := time.Now()
	err := p.safeCall(t)
	t.done <- err

	fields := []logger.Field{
		logger.String("task", t.name),
		logger.Int("worker", worker),
		logger.Duration("wait_ms", start.Sub(t.enqueued)),
		logger.Duration("run_ms", time.Since(start)),
	}
	if err != nil {
		p.logger.Debug("task failed", append(fields, logger.Error(err))...)
		return
	}
	p.logger.Debug("task done", fields...)
}

func (p *Pool) safeCall(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				logger.String("task", t.name),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
	}()
	return t.fn(p.ctx)
}

func (p *Pool) observeDepth() {
	if p.onDepth != nil {
		p.onDepth(len(p.tasks))
	}
}

// Stop lets running tasks finish, rejects queued ones with ErrPoolClosed and
// cancels the task context if ctx expires first.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.quit)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		p.cancel()
		<-done
		err = ctx.Err()
	}
	p.cancel()

	for {
		select {
		case t := <-p.tasks:
			t.done <- ErrPoolClosed
		default:
			p.logger.Info("worker pool stopped")
			return err
		}
	}
}
