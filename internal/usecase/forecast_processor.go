package usecase

import (
	"context"
	"fmt"
	"time"

	"TravelFX/internal/domain/models"
	drepo "TravelFX/internal/domain/repository"
)

// Backends a ForecastProcessor can route runs to.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendNone       = "none"
)

// ForecastProcessor routes forecast runs to the configured backend.
type ForecastProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewForecastProcessor creates a processor. pub or store may be nil when the
// backend does not use them.
func NewForecastProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
) *ForecastProcessor {
	return &ForecastProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single run.
func (p *ForecastProcessor) Process(ctx context.Context, run *models.ForecastRun) error {
	if run == nil {
		return fmt.Errorf("forecast run is nil")
	}
	return p.ProcessBatch(ctx, []*models.ForecastRun{run})
}

// ProcessBatch routes runs in one backend call.
func (p *ForecastProcessor) ProcessBatch(ctx context.Context, runs []*models.ForecastRun) error {
	if len(runs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishBatch(ctx, runs)
	case BackendClickHouse:
		err = p.store.StoreBatch(ctx, runs)
	case BackendNone, "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for range runs {
		p.metrics.RecordRunSent(p.backend)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *ForecastProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
