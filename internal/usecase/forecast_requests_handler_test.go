package usecase

import (
	"context"
	"testing"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/testutil"
	"TravelFX/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type fakeForecaster struct {
	daily, monthly []string
	err            error
}

func (f *fakeForecaster) ForecastDaily(_ context.Context, base, quote string, days int) (*models.ForecastResult, error) {
	f.daily = append(f.daily, base+quote)
	return &models.ForecastResult{}, f.err
}

func (f *fakeForecaster) ForecastMonthly(_ context.Context, base, quote string, months int) ([]models.MonthlyForecast, error) {
	f.monthly = append(f.monthly, base+quote)
	return nil, f.err
}

func TestForecastRequestsHandlerDispatch(t *testing.T) {
	f := &fakeForecaster{}
	h := NewForecastRequestsHandler("fx.forecast.requests", f, testutil.NewMetrics(), logger.Nop())

	assert.Equal(t, "fx.forecast.requests", h.Topic())
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"base_currency":"USD","target_currency":"JPY","months":6}`)))
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"base_currency":"USD","target_currency":"EUR"}`)))
	assert.NoError(t, h.Handle(context.Background(), []byte(`not json`)))

	assert.Equal(t, []string{"USDJPY"}, f.monthly)
	assert.Equal(t, []string{"USDEUR"}, f.daily)
}

func TestForecastRequestsHandlerRetriesTransientErrors(t *testing.T) {
	f := &fakeForecaster{err: models.NewError(models.KindPoolSaturated, "full")}
	h := NewForecastRequestsHandler("t", f, testutil.NewMetrics(), logger.Nop())
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"base_currency":"USD","target_currency":"JPY"}`)), models.ErrPoolSaturated)

	f.err = models.NewError(models.KindValidation, "bad")
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"base_currency":"USD","target_currency":"USD"}`)))
}
