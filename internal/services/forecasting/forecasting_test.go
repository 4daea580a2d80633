package forecasting

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(n int, fn func(i int) float64) *models.HistoricalSeries {
	s := &models.HistoricalSeries{Pair: models.CurrencyPair{Base: "USD", Quote: "JPY"}}
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, models.RatePoint{Date: start.AddDate(0, 0, i), Rate: fn(i)})
	}
	return s
}

func wavy(i int) float64 {
	return 0.0070 + 0.00001*float64(i) + 0.0002*math.Sin(float64(i)/9)
}

func assertContiguous(t *testing.T, out []models.DailyForecast, first time.Time) {
	t.Helper()
	for i, d := range out {
		require.Equal(t, first.AddDate(0, 0, i), d.Date, "index %d", i)
		require.LessOrEqual(t, d.P10, d.P50)
		require.LessOrEqual(t, d.P50, d.P90)
	}
}

func TestTrendModelLifecycle(t *testing.T) {
	m := NewTrendModel(TrendConfig{Window: 30}, nil)
	assert.Equal(t, service.StateUntrained, m.State())

	_, err := m.Predict(5)
	assert.ErrorIs(t, err, models.ErrModelNotTrained)

	require.NoError(t, m.Train(makeSeries(60, wavy)))
	assert.Equal(t, service.StateTrained, m.State())

	_, err = m.Predict(0)
	assert.ErrorIs(t, err, models.ErrValidation)

	err = m.Train(makeSeries(1, wavy))
	assert.ErrorIs(t, err, models.ErrTrainingFailed)
	assert.Equal(t, service.StateUntrained, m.State())
}

func TestTrendModelZeroNoiseIsDeterministic(t *testing.T) {
	series := makeSeries(40, func(i int) float64 { return 1.0 + 0.01*float64(i) })

	a := NewTrendModel(TrendConfig{Window: 30}, rand.New(rand.NewPCG(1, 2)))
	b := NewTrendModel(TrendConfig{Window: 30}, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, a.Train(series))
	require.NoError(t, b.Train(series))

	outA, err := a.Predict(10)
	require.NoError(t, err)
	outB, err := b.Predict(10)
	require.NoError(t, err)
	assert.Equal(t, outA, outB)

	// last = 1.39, trend = (1.39 - 1.10) / 30
	trend := (1.39 - 1.10) / 30
	for i, d := range outA {
		assert.InDelta(t, 1.39+trend*float64(i+1), d.P50, 1e-9)
		assert.True(t, d.Deterministic())
	}
	assertContiguous(t, outA, start.AddDate(0, 0, 40))
}

func TestTrendModelNoiseIsReproducibleWithSeed(t *testing.T) {
	series := makeSeries(90, wavy)
	cfg := TrendConfig{Window: 30, NoiseAmplitude: 0.5}

	run := func() []models.DailyForecast {
		m := NewTrendModel(cfg, rand.New(rand.NewPCG(7, 7)))
		require.NoError(t, m.Train(series))
		out, err := m.Predict(20)
		require.NoError(t, err)
		return out
	}

	first, second := run(), run()
	assert.Equal(t, first, second)

	noiseless := NewTrendModel(TrendConfig{Window: 30}, nil)
	require.NoError(t, noiseless.Train(series))
	flat, err := noiseless.Predict(20)
	require.NoError(t, err)
	assert.NotEqual(t, flat, first)
}

func TestTrendModelSeedStartsAfterAsOf(t *testing.T) {
	m := NewTrendModel(TrendConfig{}, nil)
	asOf := time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC)
	require.NoError(t, m.Seed(0.0068, 0, 0.0068*0.02, asOf))

	out, err := m.Predict(3)
	require.NoError(t, err)
	assertContiguous(t, out, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 0.0068, out[2].P50, 1e-12)

	assert.ErrorIs(t, m.Seed(-1, 0, 0, asOf), models.ErrTrainingFailed)
	assert.Equal(t, service.StateUntrained, m.State())
}

func smallSequenceConfig() SequenceConfig {
	return SequenceConfig{InputChunk: 14, OutputChunk: 7, HiddenSize: 8, Epochs: 15, BatchSize: 16, LearningRate: 0.01}
}

func TestSequenceModelProducesOrderedBands(t *testing.T) {
	series := makeSeries(200, wavy)
	m := NewSequenceModel(smallSequenceConfig(), rand.New(rand.NewPCG(42, 42)))
	require.NoError(t, m.Train(series))
	assert.Equal(t, service.StateTrained, m.State())
	assert.False(t, math.IsNaN(m.Loss()))

	out, err := m.Predict(30)
	require.NoError(t, err)
	require.Len(t, out, 30)
	assertContiguous(t, out, start.AddDate(0, 0, 200))
	for _, d := range out {
		assert.False(t, math.IsNaN(d.P50))
		assert.GreaterOrEqual(t, d.P10, 0.0)
	}
}

func TestSequenceModelIsReproducibleWithSeed(t *testing.T) {
	series := makeSeries(120, wavy)

	run := func() []models.DailyForecast {
		m := NewSequenceModel(smallSequenceConfig(), rand.New(rand.NewPCG(42, 42)))
		require.NoError(t, m.Train(series))
		out, err := m.Predict(10)
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, run(), run())
}

func TestSequenceModelShrinksWindowsForShortSeries(t *testing.T) {
	m := NewSequenceModel(DefaultSequenceConfig(), nil)
	m.cfg.Epochs = 2
	require.NoError(t, m.Train(makeSeries(31, wavy)))

	out, err := m.Predict(45)
	require.NoError(t, err)
	assert.Len(t, out, 45)
}

func TestSequenceModelRejectsConstantSeries(t *testing.T) {
	m := NewSequenceModel(smallSequenceConfig(), nil)
	err := m.Train(makeSeries(100, func(int) float64 { return 0.5 }))
	assert.ErrorIs(t, err, models.ErrTrainingFailed)
	assert.Equal(t, service.StateUntrained, m.State())

	_, err = m.Predict(5)
	assert.ErrorIs(t, err, models.ErrModelNotTrained)
}

func TestAggregateMonthly(t *testing.T) {
	var daily []models.DailyForecast
	for i := 0; i < 75; i++ {
		d := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		v := float64(d.Month())
		daily = append(daily, models.DailyForecast{Date: d, P10: v - 0.5, P50: v, P90: v + float64(i%3)})
	}

	got := AggregateMonthly(daily, 0)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03", "2025-04"},
		[]string{got[0].Month, got[1].Month, got[2].Month, got[3].Month})
	assert.InDelta(t, 2.0, got[1].P50, 1e-12)
	for _, m := range got {
		assert.LessOrEqual(t, m.P10, m.P50)
		assert.LessOrEqual(t, m.P50, m.P90)
	}

	assert.Len(t, AggregateMonthly(daily, 2), 2)
	assert.Empty(t, AggregateMonthly(nil, 3))
}

func TestRankMonthsOrdersByProbabilityThenCost(t *testing.T) {
	monthly := []models.MonthlyForecast{
		{Month: "2025-01", P10: 0.0100, P50: 0.0100, P90: 0.0100},
		{Month: "2025-02", P10: 0.0080, P50: 0.0080, P90: 0.0080},
	}

	got, err := RankMonths(monthly, 1000, 100, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2025-02", got[0].Month)
	assert.Equal(t, "2025-01", got[1].Month)
	assert.InDelta(t, 8.0, got[0].ExpectedCost, 1e-9)
	assert.InDelta(t, 10.0, got[1].ExpectedCost, 1e-9)
	assert.Equal(t, 1.0, got[0].ProbabilityWithinBudget)
	assert.Equal(t, 1.0, got[1].ProbabilityWithinBudget)
}

func TestRankMonthsDeterministicOverBudget(t *testing.T) {
	got, err := RankMonths([]models.MonthlyForecast{
		{Month: "2025-01", P10: 0.02, P50: 0.02, P90: 0.02},
		{Month: "2025-02", P10: 0.005, P50: 0.005, P90: 0.005},
	}, 10, 100, 10)
	require.NoError(t, err)

	assert.Equal(t, "2025-02", got[0].Month)
	assert.Equal(t, 1.0, got[0].ProbabilityWithinBudget)
	assert.Equal(t, 0.0, got[1].ProbabilityWithinBudget)
}

func TestRankMonthsInterpolatesSpread(t *testing.T) {
	m := models.MonthlyForecast{Month: "2025-05", P10: 0.8, P50: 1.0, P90: 1.2}

	// threshold rate = budget / (cost * days)
	cases := []struct {
		threshold float64
		want      float64
	}{
		{0.5, 0},
		{0.8, 0.1},
		{0.9, 0.3},
		{1.0, 0.5},
		{1.1, 0.7},
		{1.2, 0.9},
		{1.25, 1},
		{2.0, 1},
	}
	for _, tc := range cases {
		got, err := RankMonths([]models.MonthlyForecast{m}, tc.threshold*10, 1, 10)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got[0].ProbabilityWithinBudget, 1e-9, "threshold %v", tc.threshold)
	}
}

func TestRankMonthsValidates(t *testing.T) {
	_, err := RankMonths(nil, -1, 1, 1)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = RankMonths(nil, 1, 0, 1)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = RankMonths(nil, 1, 1, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFactoryBuildsFreshModels(t *testing.T) {
	f, err := NewFactory(FactoryConfig{Model: SequenceModelName, Sequence: smallSequenceConfig(), SequenceSeed: 42})
	require.NoError(t, err)

	a, b := f.Model(), f.Model()
	assert.Equal(t, SequenceModelName, a.Name())
	assert.NotSame(t, a, b)
	assert.Equal(t, TrendModelName, f.Trend().Name())

	_, err = NewFactory(FactoryConfig{Model: "arima"})
	assert.Error(t, err)
}
