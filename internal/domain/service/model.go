package service

import "TravelFX/internal/domain/models"

// ModelState is the lifecycle of a ForecastModel.
type ModelState int

const (
	StateUntrained ModelState = iota
	StateTraining
	StateTrained
)

func (s ModelState) String() string {
	switch s {
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	default:
		return "untrained"
	}
}

// ForecastModel turns a cleaned series into daily quantile forecasts. Train may be
// called again to refit; a failed Train leaves the model Untrained. Predict before a
// successful Train fails with models.ErrModelNotTrained. Implementations are not
// safe for concurrent use; build one per request.
type ForecastModel interface {
	Name() string
	State() ModelState
	Train(series *models.HistoricalSeries) error
	Predict(horizonDays int) ([]models.DailyForecast, error)
}
