package di

import (
	"context"
	"time"

	"TravelFX/internal/usecase"
	pkgcache "TravelFX/pkg/cache"
	"TravelFX/pkg/config"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/metrics"
)

// NewLocalForecaster builds the forecast service for one-shot use such as the
// CLI: in-memory cache, no run sink, no intake. The returned func stops the pool.
func NewLocalForecaster(cfg *config.Config, l *logger.Logger) (*usecase.ForecastService, func(), error) {
	factory, err := ProvideModelFactory(cfg)
	if err != nil {
		return nil, nil, err
	}
	m := metrics.Nop{}
	fetcher := ProvideHistoryFetcher(ProvideMarketData(cfg, l), l, cfg)
	pool := ProvidePool(cfg, l, m)
	c := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(64))

	svc := usecase.NewForecastService(fetcher, ProvideRateResolver(fetcher, l, cfg), factory, pool, m, usecase.ServiceConfig{
		Tradable:       cfg.Forecast.Tradable,
		MaxHorizonDays: cfg.Forecast.MaxHorizonDays,
		MaxMonths:      cfg.Forecast.MaxMonths,
		CacheTTL:       cfg.Forecast.CacheTTL,
	}, l, usecase.WithCache(c))

	pool.Start()
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
		_ = c.Close()
	}
	return svc, cleanup, nil
}
