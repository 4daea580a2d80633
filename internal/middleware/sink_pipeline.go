package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TravelFX/internal/domain/models"
	domrepo "TravelFX/internal/domain/repository"
	"TravelFX/pkg/logger"
)

// BatchProc is the minimal processor interface the pipeline needs.
type BatchProc interface {
	ProcessBatch(ctx context.Context, runs []*models.ForecastRun) error
}

// SinkPipeline sits between the forecast service and the run backend. Process
// never blocks the forecast path: runs are buffered and flushed in batches by a
// background loop that backs off while the backend is failing.
type SinkPipeline struct {
	proc      BatchProc
	metrics   domrepo.Metrics
	l         *logger.Logger
	bufSize   int
	batchSize int
	batchTO   time.Duration
	bufCh     chan *models.ForecastRun
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	mu        sync.Mutex
}

type PipelineOption func(*SinkPipeline)

// WithBufferSize sets how many runs may wait for the backend.
func WithBufferSize(n int) PipelineOption {
	return func(p *SinkPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the flush size and the longest a partial batch waits.
func WithBatch(size int, timeout time.Duration) PipelineOption {
	return func(p *SinkPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if timeout > 0 {
			p.batchTO = timeout
		}
	}
}

// NewSinkPipeline creates a new pipeline.
func NewSinkPipeline(proc BatchProc, metrics domrepo.Metrics, l *logger.Logger, opts ...PipelineOption) *SinkPipeline {
	p := &SinkPipeline{
		proc:      proc,
		metrics:   metrics,
		l:         l,
		bufSize:   1000,
		batchSize: 50,
		batchTO:   2 * time.Second,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.ForecastRun, p.bufSize)
	return p
}

// Start launches background flushing of buffered runs.
func (p *SinkPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

func (p *SinkPipeline) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.batchTO)
	defer ticker.Stop()

	batch := make([]*models.ForecastRun, 0, p.batchSize)
	backoff := 50 * time.Millisecond

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for {
			err := p.proc.ProcessBatch(ctx, batch)
			if err == nil {
				backoff = 50 * time.Millisecond
				batch = batch[:0]
				return
			}
			p.metrics.RecordError("pipeline_flush")
			p.l.Warn("forecast run flush failed",
				logger.Int("runs", len(batch)),
				logger.Duration("backoff", backoff),
				logger.Error(err))
			// exponential backoff with cap
			if backoff < 2*time.Second {
				backoff *= 2
			}
			select {
			case <-time.After(backoff):
			case <-p.stopCh:
				p.metrics.RecordError("pipeline_drop_on_stop")
				batch = batch[:0]
				return
			case <-ctx.Done():
				batch = batch[:0]
				return
			}
		}
	}

	for {
		select {
		case run := <-p.bufCh:
			batch = append(batch, run)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-p.stopCh:
			p.drain(&batch)
			flush()
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain moves whatever is still buffered into batch.
func (p *SinkPipeline) drain(batch *[]*models.ForecastRun) {
	for {
		select {
		case run := <-p.bufCh:
			*batch = append(*batch, run)
		default:
			return
		}
	}
}

// Stop flushes what is buffered with a single attempt and waits for the loop to exit.
func (p *SinkPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Process validates and enqueues a run. A full buffer drops the run.
func (p *SinkPipeline) Process(_ context.Context, run *models.ForecastRun) error {
	if err := validateRun(run); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	select {
	case p.bufCh <- run:
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return fmt.Errorf("pipeline buffer full, run %s dropped", run.ID)
	}
}

// Pending is the number of runs waiting in the buffer.
func (p *SinkPipeline) Pending() int {
	return len(p.bufCh)
}

func validateRun(run *models.ForecastRun) error {
	if run == nil {
		return fmt.Errorf("run nil")
	}
	if run.ID == "" {
		return fmt.Errorf("run id empty")
	}
	if len(run.Daily) == 0 {
		return fmt.Errorf("run %s has no forecasts", run.ID)
	}
	for _, d := range run.Daily {
		if d.P10 > d.P50 || d.P50 > d.P90 || d.P10 < 0 {
			return fmt.Errorf("run %s has an invalid band on %s", run.ID, d.Date.Format("2006-01-02"))
		}
	}
	return nil
}
