package usecase

import (
	"context"
	"time"

	"TravelFX/internal/domain/models"
	drepo "TravelFX/internal/domain/repository"
	"TravelFX/internal/services/features"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/util"
)

// SeriesFetcher returns a cleaned daily series for a pair.
type SeriesFetcher interface {
	Fetch(ctx context.Context, pair models.CurrencyPair) (*models.HistoricalSeries, error)
}

// HistoryFetcher pulls a lookback window of closes and turns it into a gap-free daily series.
type HistoryFetcher struct {
	md            drepo.MarketData
	lookbackYears int
	minObs        int
	now           func() time.Time
	l             *logger.Logger
}

type FetcherOption func(*HistoryFetcher)

func WithLookbackYears(n int) FetcherOption {
	return func(f *HistoryFetcher) {
		if n > 0 {
			f.lookbackYears = n
		}
	}
}

// WithMinObservations sets how many cleaned closes a series needs before interpolation.
func WithMinObservations(n int) FetcherOption {
	return func(f *HistoryFetcher) {
		if n > 0 {
			f.minObs = n
		}
	}
}

func WithFetcherClock(now func() time.Time) FetcherOption {
	return func(f *HistoryFetcher) { f.now = now }
}

func NewHistoryFetcher(md drepo.MarketData, l *logger.Logger, opts ...FetcherOption) *HistoryFetcher {
	f := &HistoryFetcher{
		md:            md,
		lookbackYears: 8,
		minObs:        30,
		now:           time.Now,
		l:             l,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the pair's history over [now - lookback, now]. An unknown ticker or
// empty window fails with DataUnavailable; fewer than the minimum number of valid
// closes fails with InsufficientHistory.
func (f *HistoryFetcher) Fetch(ctx context.Context, pair models.CurrencyPair) (*models.HistoricalSeries, error) {
	to := f.now().UTC()
	from := util.DayStart(to).AddDate(-f.lookbackYears, 0, 0)

	rows, err := f.md.DailyCloses(ctx, pair.Ticker(), from, to)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, ok := models.KindOf(err); ok {
			return nil, err
		}
		return nil, models.WrapError(models.KindDataUnavailable, err, "fetch %s", pair)
	}
	if len(rows) == 0 {
		return nil, models.NewError(models.KindDataUnavailable, "no closes for %s", pair)
	}

	points := features.CleanCloses(rows)
	if len(points) < f.minObs {
		return nil, models.NewError(models.KindInsufficientHistory,
			"%s has %d valid observations, need %d", pair, len(points), f.minObs)
	}

	series := &models.HistoricalSeries{Pair: pair, Points: features.ReindexDaily(points)}
	f.l.Debug("history fetched",
		logger.String("pair", pair.Key()),
		logger.Int("observations", len(points)),
		logger.Int("days", series.Len()))
	return series, nil
}
