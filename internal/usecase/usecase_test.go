package usecase

import (
	"context"
	"testing"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/services/forecasting"
	"TravelFX/internal/testutil"
	pkgcache "TravelFX/pkg/cache"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/queue"
	"TravelFX/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now       = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	today     = util.DayStart(now)
	yesterday = util.AddDays(today, -1)
)

func clock() time.Time { return now }

func newFetcher(md *testutil.MarketData) *HistoryFetcher {
	return newFetcherAt(md, clock)
}

func newFetcherAt(md *testutil.MarketData, clk func() time.Time) *HistoryFetcher {
	return NewHistoryFetcher(md, logger.Nop(), WithFetcherClock(clk))
}

func TestHistoryFetcherThreshold(t *testing.T) {
	tests := []struct {
		name   string
		points int
		ok     bool
	}{
		{"well short", 25, false},
		{"one short", 29, false},
		{"exactly enough", 30, true},
		{"comfortably enough", 31, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := testutil.NewMarketData().
				Set("EURUSD=X", testutil.Closes(yesterday, tt.points, testutil.Flat(1.08)))

			series, err := newFetcher(md).Fetch(context.Background(), models.CurrencyPair{Base: "USD", Quote: "EUR"})
			if !tt.ok {
				assert.ErrorIs(t, err, models.ErrInsufficientHistory)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.points, series.Len())
			assert.Equal(t, yesterday, series.Last().Date)
		})
	}
}

func TestHistoryFetcherCleansAndInterpolates(t *testing.T) {
	rows := testutil.Closes(yesterday, 40, testutil.Linear(1.0, 0.01))
	rows[10].Close = nil
	bad := -3.0
	rows[11].Close = &bad
	// drop a weekend entirely
	rows = append(rows[:20], rows[22:]...)

	md := testutil.NewMarketData().Set("EURUSD=X", rows)
	series, err := newFetcher(md).Fetch(context.Background(), models.CurrencyPair{Base: "USD", Quote: "EUR"})
	require.NoError(t, err)

	require.Equal(t, 40, series.Len())
	for i, p := range series.Points {
		require.Equal(t, util.AddDays(series.First().Date, i), p.Date)
		require.Greater(t, p.Rate, 0.0)
		assert.InDelta(t, 1.0+0.01*float64(i), p.Rate, 1e-9)
	}
}

func TestHistoryFetcherUnknownTicker(t *testing.T) {
	_, err := newFetcher(testutil.NewMarketData()).Fetch(context.Background(), models.CurrencyPair{Base: "XYZ", Quote: "ABC"})
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestCrossRateUnresolvable(t *testing.T) {
	r := NewCrossRateResolver(newFetcher(testutil.NewMarketData()), "USD", 0.02, logger.Nop())
	_, err := r.Resolve(context.Background(), "XYZ", "ABC")
	assert.ErrorIs(t, err, models.ErrPairUnresolvable)
}

func TestCrossRateAgreesWithDirect(t *testing.T) {
	usdPerJPY, usdPerEUR := 0.0067, 1.08
	md := testutil.NewMarketData().
		Set("JPYUSD=X", testutil.Closes(yesterday, 60, testutil.Flat(usdPerJPY))).
		Set("EURUSD=X", testutil.Closes(yesterday, 60, testutil.Flat(usdPerEUR))).
		// direct EUR/JPY market, slightly off the synthetic cross
		Set("JPYEUR=X", testutil.Closes(yesterday, 60, testutil.Flat(usdPerJPY/usdPerEUR*1.003)))
	f := newFetcher(md)

	cr, err := NewCrossRateResolver(f, "USD", 0.02, logger.Nop()).Resolve(context.Background(), "EUR", "JPY")
	require.NoError(t, err)

	direct, err := f.Fetch(context.Background(), models.CurrencyPair{Base: "EUR", Quote: "JPY"})
	require.NoError(t, err)

	assert.InEpsilon(t, direct.Last().Rate, cr.Rate, 0.01)
	assert.Equal(t, yesterday, cr.AsOf)
	assert.InDelta(t, cr.Rate*0.02, cr.Volatility, 1e-12)
	assert.Zero(t, cr.Trend)
}

func TestCrossRateInvertsWhenOnlyOppositeTickerExists(t *testing.T) {
	// only THB per USD is quoted
	md := testutil.NewMarketData().Set("USDTHB=X", testutil.Closes(yesterday, 60, testutil.Flat(36)))

	cr, err := NewCrossRateResolver(newFetcher(md), "USD", 0.02, logger.Nop()).Resolve(context.Background(), "USD", "THB")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/36, cr.Rate, 1e-12)
	assert.Equal(t, 1, md.Calls("THBUSD=X"))
}

func TestCrossRateUsesLatestCommonDate(t *testing.T) {
	md := testutil.NewMarketData().
		Set("JPYUSD=X", testutil.Closes(yesterday, 60, testutil.Linear(0.0060, 0.00001))).
		Set("EURUSD=X", testutil.Closes(util.AddDays(yesterday, -5), 60, testutil.Flat(1.0)))

	cr, err := NewCrossRateResolver(newFetcher(md), "USD", 0.02, logger.Nop()).Resolve(context.Background(), "EUR", "JPY")
	require.NoError(t, err)
	assert.Equal(t, util.AddDays(yesterday, -5), cr.AsOf)
	assert.InDelta(t, 0.0060+0.00001*54, cr.Rate, 1e-12)
}

type harness struct {
	md      *testutil.MarketData
	sink    *testutil.RunSink
	metrics *testutil.Metrics
	pool    *queue.Pool
	svc     *ForecastService
}

func newHarness(t *testing.T, md *testutil.MarketData, poolCfg *queue.QueueConfig) *harness {
	t.Helper()
	return newHarnessAt(t, md, poolCfg, clock)
}

func newHarnessAt(t *testing.T, md *testutil.MarketData, poolCfg *queue.QueueConfig, clk func() time.Time) *harness {
	t.Helper()
	if poolCfg == nil {
		poolCfg = &queue.QueueConfig{Workers: 2, QueueSize: 8, SubmitTimeout: time.Second}
	}
	pool := queue.NewPool(logger.Nop(), poolCfg)
	pool.Start()
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	factory, err := forecasting.NewFactory(forecasting.FactoryConfig{
		Model: forecasting.TrendModelName,
		Trend: forecasting.TrendConfig{Window: 30},
	})
	require.NoError(t, err)

	mem := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	h := &harness{md: md, sink: &testutil.RunSink{}, metrics: testutil.NewMetrics(), pool: pool}
	fetcher := newFetcherAt(md, clk)
	h.svc = NewForecastService(
		fetcher,
		NewCrossRateResolver(fetcher, "USD", 0.02, logger.Nop()),
		factory,
		pool,
		h.metrics,
		ServiceConfig{
			Tradable:       []string{"USD", "EUR", "JPY", "GBP"},
			MaxHorizonDays: 730,
			MaxMonths:      24,
			CacheTTL:       time.Hour,
		},
		logger.Nop(),
		WithCache(mem),
		WithRunSink(h.sink),
		WithServiceClock(clk),
	)
	return h
}

func usdJPY() *testutil.MarketData {
	return testutil.NewMarketData().
		Set("JPYUSD=X", testutil.Closes(yesterday, 400, testutil.Linear(0.0060, 0.000001)))
}

func TestForecastDailyDirect(t *testing.T) {
	h := newHarness(t, usdJPY(), nil)

	res, err := h.svc.ForecastDaily(context.Background(), " usd", "jpy ", 30)
	require.NoError(t, err)

	assert.Equal(t, models.PathDirect, res.Path)
	assert.Equal(t, "USD/JPY", res.Pair.Key())
	require.Len(t, res.Daily, 30)
	for i, d := range res.Daily {
		assert.Equal(t, util.AddDays(today, i), d.Date)
		assert.True(t, d.Deterministic())
	}

	runs := h.sink.Runs()
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].ID)
	assert.Equal(t, 30, runs[0].HorizonDays)
	assert.Equal(t, 1, h.metrics.Count("forecast:direct:trend"))
}

func TestForecastDailyServesFromCache(t *testing.T) {
	h := newHarness(t, usdJPY(), nil)

	first, err := h.svc.ForecastDaily(context.Background(), "USD", "JPY", 14)
	require.NoError(t, err)
	second, err := h.svc.ForecastDaily(context.Background(), "USD", "JPY", 14)
	require.NoError(t, err)

	assert.Equal(t, 1, h.md.Calls("JPYUSD=X"))
	require.Len(t, second.Daily, len(first.Daily))
	for i := range first.Daily {
		assert.True(t, first.Daily[i].Date.Equal(second.Daily[i].Date))
		assert.Equal(t, first.Daily[i].P50, second.Daily[i].P50)
	}

	require.NoError(t, h.svc.Invalidate(context.Background(), "USD", "JPY"))
	_, err = h.svc.ForecastDaily(context.Background(), "USD", "JPY", 14)
	require.NoError(t, err)
	assert.Equal(t, 2, h.md.Calls("JPYUSD=X"))
}

func TestForecastDailyCacheHitKeepsUTCDates(t *testing.T) {
	local := time.Local
	time.Local = time.FixedZone("UTC-5", -5*3600)
	t.Cleanup(func() { time.Local = local })

	h := newHarness(t, usdJPY(), nil)

	first, err := h.svc.ForecastDaily(context.Background(), "USD", "JPY", 3)
	require.NoError(t, err)
	second, err := h.svc.ForecastDaily(context.Background(), "USD", "JPY", 3)
	require.NoError(t, err)
	require.Equal(t, 1, h.md.Calls("JPYUSD=X"))

	require.Len(t, second.Daily, 3)
	for i, d := range second.Daily {
		assert.Equal(t, time.UTC, d.Date.Location())
		assert.Equal(t, first.Daily[i].Date.Format(util.DateLayout), d.Date.Format(util.DateLayout))
	}
	assert.Equal(t, today.Format(util.DateLayout), second.Daily[0].Date.Format(util.DateLayout))
	assert.Equal(t, time.UTC, second.CreatedAt.Location())
}

func TestForecastDailyCrossPathForUntradable(t *testing.T) {
	md := testutil.NewMarketData().Set("THBUSD=X", testutil.Closes(yesterday, 60, testutil.Flat(0.028)))
	h := newHarness(t, md, nil)

	res, err := h.svc.ForecastDaily(context.Background(), "USD", "THB", 10)
	require.NoError(t, err)

	assert.Equal(t, models.PathCross, res.Path)
	require.Len(t, res.Daily, 10)
	assert.Equal(t, util.AddDays(today, 1), res.Daily[0].Date)
	for _, d := range res.Daily {
		assert.InDelta(t, 0.028, d.P50, 1e-12)
	}
	assert.Zero(t, h.metrics.Count("fallback:data_unavailable"))
}

func TestForecastDailyCrossCacheExpiresAtMidnight(t *testing.T) {
	md := testutil.NewMarketData().Set("THBUSD=X", testutil.Closes(yesterday, 60, testutil.Flat(0.028)))
	at := time.Date(2026, 10, 17, 23, 50, 0, 0, time.UTC)
	h := newHarnessAt(t, md, nil, func() time.Time { return at })

	res, err := h.svc.ForecastDaily(context.Background(), "USD", "THB", 5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), res.Daily[0].Date)

	// Same day: served from cache.
	at = time.Date(2026, 10, 17, 23, 55, 0, 0, time.UTC)
	_, err = h.svc.ForecastDaily(context.Background(), "USD", "THB", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, h.md.Calls("THBUSD=X"))

	at = time.Date(2026, 10, 18, 0, 10, 0, 0, time.UTC)
	res, err = h.svc.ForecastDaily(context.Background(), "USD", "THB", 5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), res.Daily[0].Date)
	assert.Equal(t, 2, h.md.Calls("THBUSD=X"))
}

func TestForecastDailyFallsBackOnShortHistory(t *testing.T) {
	md := testutil.NewMarketData().
		Set("GBPEUR=X", testutil.Closes(yesterday, 10, testutil.Flat(1.15))).
		Set("EURUSD=X", testutil.Closes(yesterday, 60, testutil.Flat(1.08))).
		Set("GBPUSD=X", testutil.Closes(yesterday, 60, testutil.Flat(1.27)))
	h := newHarness(t, md, nil)

	res, err := h.svc.ForecastDaily(context.Background(), "EUR", "GBP", 5)
	require.NoError(t, err)
	assert.Equal(t, models.PathCross, res.Path)
	assert.InDelta(t, 1.27/1.08, res.Daily[0].P50, 1e-9)
	assert.Equal(t, 1, h.metrics.Count("fallback:insufficient_history"))
}

func TestForecastDailyValidation(t *testing.T) {
	h := newHarness(t, usdJPY(), nil)

	_, err := h.svc.ForecastDaily(context.Background(), "USD", "JPY", 0)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = h.svc.ForecastDaily(context.Background(), "USD", "JPY", 731)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = h.svc.ForecastDaily(context.Background(), "USD", "usd", 10)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = h.svc.ForecastDaily(context.Background(), "US", "JPY", 10)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, h.md.Calls("JPYUSD=X"))
}

func TestForecastDailyUnresolvablePair(t *testing.T) {
	h := newHarness(t, testutil.NewMarketData(), nil)
	_, err := h.svc.ForecastDaily(context.Background(), "XYZ", "ABC", 10)
	assert.ErrorIs(t, err, models.ErrPairUnresolvable)
}

func TestForecastMonthly(t *testing.T) {
	h := newHarness(t, usdJPY(), nil)

	monthly, err := h.svc.ForecastMonthly(context.Background(), "USD", "JPY", 3)
	require.NoError(t, err)

	require.Len(t, monthly, 3)
	assert.Equal(t, []string{"2026-10", "2026-11", "2026-12"},
		[]string{monthly[0].Month, monthly[1].Month, monthly[2].Month})
	for _, m := range monthly {
		assert.LessOrEqual(t, m.P10, m.P50)
		assert.LessOrEqual(t, m.P50, m.P90)
	}

	_, err = h.svc.ForecastMonthly(context.Background(), "USD", "JPY", 25)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRankForTrip(t *testing.T) {
	h := newHarness(t, usdJPY(), nil)

	ranked, err := h.svc.RankForTrip(context.Background(), "USD", "JPY", 4, 1000, 10000, 7)
	require.NoError(t, err)
	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].ProbabilityWithinBudget, ranked[i].ProbabilityWithinBudget)
	}

	_, err = h.svc.RankForTrip(context.Background(), "USD", "JPY", 4, -1, 10000, 7)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = h.svc.RankForTrip(context.Background(), "USD", "JPY", 4, 1000, 0, 7)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 1, h.md.Calls("JPYUSD=X"))
}

func TestForecastPoolSaturated(t *testing.T) {
	h := newHarness(t, usdJPY(), &queue.QueueConfig{Workers: 1, QueueSize: 0, SubmitTimeout: 50 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := h.pool.Submit(context.Background(), "blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started
	defer close(release)

	_, err = h.svc.ForecastDaily(context.Background(), "USD", "JPY", 10)
	assert.ErrorIs(t, err, models.ErrPoolSaturated)
}

// slowMarket blocks every request until release is closed.
type slowMarket struct {
	*testutil.MarketData
	release chan struct{}
}

func (s slowMarket) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]models.DailyClose, error) {
	<-s.release
	return s.MarketData.DailyCloses(ctx, ticker, from, to)
}

func TestForecastCallerDeadline(t *testing.T) {
	release := make(chan struct{})
	md := slowMarket{MarketData: usdJPY(), release: release}

	pool := queue.NewPool(logger.Nop(), &queue.QueueConfig{Workers: 1, QueueSize: 1, SubmitTimeout: time.Second})
	pool.Start()
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	factory, err := forecasting.NewFactory(forecasting.FactoryConfig{Model: forecasting.TrendModelName})
	require.NoError(t, err)
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()

	fetcher := NewHistoryFetcher(md, logger.Nop(), WithFetcherClock(clock))
	svc := NewForecastService(fetcher, NewCrossRateResolver(fetcher, "USD", 0.02, logger.Nop()), factory, pool,
		testutil.NewMetrics(), ServiceConfig{Tradable: []string{"USD", "JPY"}, CacheTTL: time.Hour},
		logger.Nop(), WithCache(mem), WithServiceClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.ForecastDaily(ctx, "USD", "JPY", 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned unit still completes and fills the cache
	close(release)
	require.Eventually(t, func() bool {
		ok, _ := mem.Exists(context.Background(), "forecast:daily:USD:JPY:10")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	res, err := svc.ForecastDaily(context.Background(), "USD", "JPY", 10)
	require.NoError(t, err)
	assert.Len(t, res.Daily, 10)
	assert.Equal(t, 1, md.Calls("JPYUSD=X"))
}
