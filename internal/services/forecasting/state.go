// Package forecasting holds the forecast models and the pure post-processing
// steps that run on their output.
package forecasting

import (
	"sync"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/domain/service"
)

// lifecycle tracks Untrained -> Training -> Trained for a model.
type lifecycle struct {
	mu    sync.Mutex
	state service.ModelState
}

func (l *lifecycle) State() service.ModelState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) beginTraining() {
	l.mu.Lock()
	l.state = service.StateTraining
	l.mu.Unlock()
}

// finishTraining moves to Trained on success and back to Untrained otherwise.
func (l *lifecycle) finishTraining(err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = service.StateUntrained
		return err
	}
	l.state = service.StateTrained
	return nil
}

func (l *lifecycle) requireTrained(name string, horizon int) error {
	if l.State() != service.StateTrained {
		return models.NewError(models.KindModelNotTrained, "%s model has not been trained", name)
	}
	if horizon <= 0 {
		return models.NewError(models.KindValidation, "horizon must be positive, got %d", horizon)
	}
	return nil
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
