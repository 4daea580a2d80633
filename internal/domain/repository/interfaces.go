package repository

import (
	"context"
	"time"

	"TravelFX/internal/domain/models"
)

// MarketData supplies daily closing prices for a provider ticker. Unknown tickers
// and empty windows fail with models.ErrDataUnavailable.
type MarketData interface {
	DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]models.DailyClose, error)
}

// SpotRates supplies the latest rate table for a base currency.
type SpotRates interface {
	Latest(ctx context.Context, base string) (*models.SpotRates, error)
}

// Publisher streams forecast runs, e.g. to Kafka.
type Publisher interface {
	Publish(ctx context.Context, run *models.ForecastRun) error
	PublishBatch(ctx context.Context, runs []*models.ForecastRun) error
	Close() error
}

// Storage persists forecast runs, e.g. to ClickHouse.
type Storage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, run *models.ForecastRun) error
	StoreBatch(ctx context.Context, runs []*models.ForecastRun) error
	Health(ctx context.Context) error
	Close() error
}

// RunSink accepts forecast runs without blocking the forecast path.
type RunSink interface {
	Process(ctx context.Context, run *models.ForecastRun) error
}

type Metrics interface {
	RecordForecast(path, model string)
	RecordFallback(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordQueueDepth(depth int)
	RecordRunSent(backend string)
}
