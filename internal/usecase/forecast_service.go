package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"TravelFX/internal/domain/models"
	drepo "TravelFX/internal/domain/repository"
	"TravelFX/internal/services/forecasting"
	pkgcache "TravelFX/pkg/cache"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/queue"
	"TravelFX/pkg/util"
)

const (
	cachePrefix = "forecast:daily"
	// monthSlack covers provider data that lags today by a few days.
	monthSlack = 7
	// retryAfterSeconds is the hint returned with a saturated pool.
	retryAfterSeconds = 30
)

// RateResolver synthesizes a point cross rate for pairs with no direct history.
type RateResolver interface {
	Resolve(ctx context.Context, base, quote string) (*models.CrossRate, error)
}

type ServiceConfig struct {
	Tradable       []string
	MaxHorizonDays int
	MaxMonths      int
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// ForecastService answers daily, monthly and trip-ranking forecasts. Each forecast
// computation runs as one unit on the bounded pool; finished results are cached per
// pair and horizon and reported to the run sink.
type ForecastService struct {
	fetcher  SeriesFetcher
	resolver RateResolver
	factory  *forecasting.Factory
	pool     *queue.Pool
	cache    pkgcache.Service
	sink     drepo.RunSink
	metrics  drepo.Metrics
	cfg      ServiceConfig
	tradable map[string]struct{}
	now      func() time.Time
	l        *logger.Logger
}

type ServiceOption func(*ForecastService)

// WithCache enables result caching; nil disables it.
func WithCache(c pkgcache.Service) ServiceOption {
	return func(s *ForecastService) { s.cache = c }
}

func WithRunSink(sink drepo.RunSink) ServiceOption {
	return func(s *ForecastService) { s.sink = sink }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *ForecastService) { s.now = now }
}

func NewForecastService(
	fetcher SeriesFetcher,
	resolver RateResolver,
	factory *forecasting.Factory,
	pool *queue.Pool,
	metrics drepo.Metrics,
	cfg ServiceConfig,
	l *logger.Logger,
	opts ...ServiceOption,
) *ForecastService {
	if cfg.MaxHorizonDays <= 0 {
		cfg.MaxHorizonDays = 730
	}
	if cfg.MaxMonths <= 0 {
		cfg.MaxMonths = 24
	}
	s := &ForecastService{
		fetcher:  fetcher,
		resolver: resolver,
		factory:  factory,
		pool:     pool,
		metrics:  metrics,
		cfg:      cfg,
		tradable: make(map[string]struct{}, len(cfg.Tradable)),
		now:      time.Now,
		l:        l,
	}
	for _, code := range cfg.Tradable {
		s.tradable[models.NormalizeCode(code)] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForecastDaily returns exactly days consecutive daily forecasts for base/quote.
func (s *ForecastService) ForecastDaily(ctx context.Context, base, quote string, days int) (*models.ForecastResult, error) {
	pair, err := models.NewCurrencyPair(base, quote)
	if err != nil {
		return nil, s.fail("daily", err)
	}
	if days < 1 || days > s.cfg.MaxHorizonDays {
		return nil, s.fail("daily", models.NewError(models.KindValidation,
			"days must be between 1 and %d", s.cfg.MaxHorizonDays))
	}
	res, err := s.forecast(ctx, pair, days)
	if err != nil {
		return nil, s.fail("daily", err)
	}
	return res, nil
}

// ForecastMonthly returns up to months monthly means, starting with the month of
// tomorrow, in ascending order.
func (s *ForecastService) ForecastMonthly(ctx context.Context, base, quote string, months int) ([]models.MonthlyForecast, error) {
	pair, err := models.NewCurrencyPair(base, quote)
	if err != nil {
		return nil, s.fail("monthly", err)
	}
	monthly, err := s.monthly(ctx, pair, months)
	if err != nil {
		return nil, s.fail("monthly", err)
	}
	return monthly, nil
}

// RankForTrip ranks the next months for a trip of tripDays days costing
// dailyLocalCost per day in the target currency, against budget in the base currency.
func (s *ForecastService) RankForTrip(
	ctx context.Context,
	base, quote string,
	months int,
	budget, dailyLocalCost float64,
	tripDays int,
) ([]models.RankedMonth, error) {
	pair, err := models.NewCurrencyPair(base, quote)
	if err != nil {
		return nil, s.fail("rank", err)
	}
	// reject bad trip parameters before paying for a forecast
	if _, err := forecasting.RankMonths(nil, budget, dailyLocalCost, tripDays); err != nil {
		return nil, s.fail("rank", err)
	}
	monthly, err := s.monthly(ctx, pair, months)
	if err != nil {
		return nil, s.fail("rank", err)
	}
	ranked, err := forecasting.RankMonths(monthly, budget, dailyLocalCost, tripDays)
	if err != nil {
		return nil, s.fail("rank", err)
	}
	return ranked, nil
}

// Invalidate drops cached forecasts for base/quote. Empty codes drop every pair.
func (s *ForecastService) Invalidate(ctx context.Context, base, quote string) error {
	if s.cache == nil {
		return nil
	}
	pattern := pkgcache.BuildPattern(cachePrefix + ":")
	if base != "" || quote != "" {
		pair, err := models.NewCurrencyPair(base, quote)
		if err != nil {
			return err
		}
		pattern = pkgcache.BuildPattern(pkgcache.GenerateKey(cachePrefix, pair.Base, pair.Quote) + ":")
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		return fmt.Errorf("invalidate forecasts: %w", err)
	}
	s.l.Info("forecast cache invalidated", logger.String("pattern", pattern))
	return nil
}

func (s *ForecastService) monthly(ctx context.Context, pair models.CurrencyPair, months int) ([]models.MonthlyForecast, error) {
	if months < 1 || months > s.cfg.MaxMonths {
		return nil, models.NewError(models.KindValidation, "months must be between 1 and %d", s.cfg.MaxMonths)
	}

	today := util.DayStart(s.now())
	firstMonth := util.MonthStart(util.AddDays(today, 1))
	lastDay := util.AddDays(firstMonth.AddDate(0, months, 0), -1)
	horizon := util.DaysBetween(today, lastDay) + monthSlack

	res, err := s.forecast(ctx, pair, horizon)
	if err != nil {
		return nil, err
	}

	daily := res.Daily
	for len(daily) > 0 && daily[0].Date.Before(firstMonth) {
		daily = daily[1:]
	}
	return forecasting.AggregateMonthly(daily, months), nil
}

// forecast serves from cache or runs one unit on the pool and waits for it.
func (s *ForecastService) forecast(ctx context.Context, pair models.CurrencyPair, days int) (*models.ForecastResult, error) {
	key := pkgcache.GenerateKey(cachePrefix, pair.Base, pair.Quote, days)
	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	var res *models.ForecastResult
	done, err := s.pool.Submit(ctx, "forecast "+pair.Key(), func(pctx context.Context) error {
		var err error
		res, err = s.compute(pctx, pair, days)
		if err == nil {
			s.store(pctx, key, res)
			s.emit(pctx, res, days)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, queue.ErrPoolSaturated) || errors.Is(err, queue.ErrPoolClosed) {
			return nil, models.WrapError(models.KindPoolSaturated, err, "forecast queue is full")
		}
		return nil, err
	}
	s.metrics.RecordQueueDepth(s.pool.Depth())

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return res, nil
	case <-ctx.Done():
		// the unit keeps running and still fills the cache
		return nil, ctx.Err()
	}
}

// compute is the unit of work: fetch, train and predict, falling back to the
// cross path when the direct market has no usable history.
func (s *ForecastService) compute(ctx context.Context, pair models.CurrencyPair, days int) (*models.ForecastResult, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("forecast", time.Since(start).Seconds()) }()

	if s.isTradable(pair.Base) && s.isTradable(pair.Quote) {
		series, err := s.fetcher.Fetch(ctx, pair)
		switch kind, _ := models.KindOf(err); {
		case err == nil:
			return s.direct(pair, series, days)
		case kind == models.KindDataUnavailable || kind == models.KindInsufficientHistory:
			s.metrics.RecordFallback(string(kind))
			s.l.Warn("direct history unusable, falling back to cross rate",
				logger.String("pair", pair.Key()), logger.Error(err))
		default:
			return nil, err
		}
	}
	return s.cross(ctx, pair, days)
}

func (s *ForecastService) direct(pair models.CurrencyPair, series *models.HistoricalSeries, days int) (*models.ForecastResult, error) {
	model := s.factory.Model()
	if err := model.Train(series); err != nil {
		return nil, err
	}
	daily, err := model.Predict(days)
	if err != nil {
		return nil, err
	}
	return s.result(pair, models.PathDirect, model.Name(), daily), nil
}

func (s *ForecastService) cross(ctx context.Context, pair models.CurrencyPair, days int) (*models.ForecastResult, error) {
	cr, err := s.resolver.Resolve(ctx, pair.Base, pair.Quote)
	if err != nil {
		return nil, err
	}
	model := s.factory.Trend()
	if err := model.Seed(cr.Rate, cr.Trend, cr.Volatility, s.now()); err != nil {
		return nil, err
	}
	daily, err := model.Predict(days)
	if err != nil {
		return nil, err
	}
	return s.result(pair, models.PathCross, model.Name(), daily), nil
}

func (s *ForecastService) result(pair models.CurrencyPair, path, model string, daily []models.DailyForecast) *models.ForecastResult {
	s.metrics.RecordForecast(path, model)
	s.l.Info("forecast computed",
		logger.String("pair", pair.Key()),
		logger.String("path", path),
		logger.String("model", model),
		logger.Int("days", len(daily)))
	return &models.ForecastResult{
		Pair:      pair,
		Path:      path,
		Model:     model,
		Daily:     daily,
		CreatedAt: s.now().UTC(),
	}
}

func (s *ForecastService) isTradable(code string) bool {
	_, ok := s.tradable[code]
	return ok
}

func (s *ForecastService) lookup(ctx context.Context, key string) (*models.ForecastResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	var res models.ForecastResult
	if err := s.cache.Get(ctx, key, &res); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			s.l.Warn("forecast cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	res.InUTC()

	// A cross forecast is seeded on the day it was computed and goes stale at midnight.
	if res.Path == models.PathCross && len(res.Daily) > 0 &&
		!res.Daily[0].Date.After(util.DayStart(s.now())) {
		return nil, false
	}
	return &res, true
}

func (s *ForecastService) store(ctx context.Context, key string, res *models.ForecastResult) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, res, s.cfg.CacheTTL); err != nil {
		s.l.Warn("forecast cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (s *ForecastService) emit(ctx context.Context, res *models.ForecastResult, days int) {
	if s.sink == nil {
		return
	}
	run := &models.ForecastRun{
		ID:          uuid.NewString(),
		Pair:        res.Pair,
		Path:        res.Path,
		Model:       res.Model,
		HorizonDays: days,
		CreatedAt:   res.CreatedAt,
		Daily:       res.Daily,
	}
	if err := s.sink.Process(ctx, run); err != nil {
		s.l.Warn("forecast run not delivered", logger.String("run_id", run.ID), logger.Error(err))
	}
}

// fail records the error kind and passes err through untouched.
func (s *ForecastService) fail(op string, err error) error {
	kind := "internal"
	if k, ok := models.KindOf(err); ok {
		kind = string(k)
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = "deadline"
	}
	s.metrics.RecordError(op + "_" + kind)
	return err
}

// RetryAfter is the back-off hint for callers rejected by a saturated pool.
func RetryAfter() int { return retryAfterSeconds }
