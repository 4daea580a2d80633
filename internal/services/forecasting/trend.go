package forecasting

import (
	"math/rand/v2"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/services/features"
	"TravelFX/pkg/util"
)

const TrendModelName = "trend"

type TrendConfig struct {
	Window int
	// NoiseAmplitude scales volatility into per-day Gaussian noise; 0 disables it.
	NoiseAmplitude float64
}

// TrendModel extrapolates the trailing linear drift and perturbs it with noise
// proportional to trailing volatility. It returns a single path, so every
// forecast it emits has P10 == P50 == P90.
type TrendModel struct {
	lifecycle
	cfg TrendConfig
	rng *rand.Rand

	last       float64
	trend      float64
	volatility float64
	lastDate   time.Time
}

// NewTrendModel builds an untrained model. rng may be nil when NoiseAmplitude is 0.
func NewTrendModel(cfg TrendConfig, rng *rand.Rand) *TrendModel {
	if cfg.Window < 2 {
		cfg.Window = 30
	}
	return &TrendModel{cfg: cfg, rng: rng}
}

func (m *TrendModel) Name() string { return TrendModelName }

func (m *TrendModel) Train(series *models.HistoricalSeries) error {
	m.beginTraining()
	return m.finishTraining(m.fit(series))
}

func (m *TrendModel) fit(series *models.HistoricalSeries) error {
	if series == nil || series.Len() < 2 {
		return models.NewError(models.KindTrainingFailed, "trend model needs at least 2 points")
	}
	values := series.Values()
	if !features.AllFinite(values) {
		return models.NewError(models.KindTrainingFailed, "series contains non-finite values")
	}

	m.last = values[len(values)-1]
	m.trend = features.TrailingTrend(values, m.cfg.Window)
	m.volatility = features.TrailingStdDev(values, m.cfg.Window)
	m.lastDate = series.Last().Date
	return nil
}

// Seed installs parameters directly, skipping fitting. The cross-rate path uses
// it with a synthesized point estimate; forecasts start the day after asOf.
func (m *TrendModel) Seed(last, trend, volatility float64, asOf time.Time) error {
	m.beginTraining()
	if last <= 0 || !features.AllFinite([]float64{last, trend, volatility}) {
		return m.finishTraining(models.NewError(models.KindTrainingFailed, "invalid seed rate %v", last))
	}
	m.last, m.trend, m.volatility = last, trend, volatility
	m.lastDate = util.DayStart(asOf)
	return m.finishTraining(nil)
}

func (m *TrendModel) Predict(horizonDays int) ([]models.DailyForecast, error) {
	if err := m.requireTrained(m.Name(), horizonDays); err != nil {
		return nil, err
	}

	noisy := m.cfg.NoiseAmplitude > 0 && m.volatility > 0 && m.rng != nil
	out := make([]models.DailyForecast, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		rate := m.last + m.trend*float64(i)
		if noisy {
			rate += m.cfg.NoiseAmplitude * m.volatility * m.rng.NormFloat64()
		}
		rate = clampNonNegative(rate)
		out[i-1] = models.DailyForecast{
			Date: util.AddDays(m.lastDate, i),
			P10:  rate,
			P50:  rate,
			P90:  rate,
		}
	}
	return out, nil
}
