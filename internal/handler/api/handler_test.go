package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "TravelFX/internal/domain/models"
	xhttp "TravelFX/pkg/http"
	xlogger "TravelFX/pkg/logger"
)

type fakeAPI struct {
	err         error
	daily       []models.DailyForecast
	gotDays     int
	invalidated []string
}

func (f *fakeAPI) ForecastDaily(_ context.Context, base, quote string, days int) (*models.ForecastResult, error) {
	f.gotDays = days
	if f.err != nil {
		return nil, f.err
	}
	return &models.ForecastResult{Path: models.PathDirect, Model: "trend", Daily: f.daily}, nil
}

func (f *fakeAPI) ForecastMonthly(_ context.Context, base, quote string, months int) ([]models.MonthlyForecast, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.MonthlyForecast{{Month: "2026-11", P10: 1, P50: 2, P90: 3}}, nil
}

func (f *fakeAPI) RankForTrip(_ context.Context, base, quote string, months int, budget, cost float64, days int) ([]models.RankedMonth, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.RankedMonth{
		{Month: "m2", ExpectedCost: 8, ProbabilityWithinBudget: 1},
		{Month: "m1", ExpectedCost: 10, ProbabilityWithinBudget: 1},
	}, nil
}

func (f *fakeAPI) Invalidate(_ context.Context, base, quote string) error {
	f.invalidated = append(f.invalidated, base+"/"+quote)
	return f.err
}

type fakeRates struct{ err error }

func (f fakeRates) Latest(_ context.Context, base string) (*models.SpotRates, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SpotRates{Base: base, Rates: map[string]float64{"JPY": 150}}, nil
}

func newEcho(api ForecastAPI, rates fakeRates) *echo.Echo {
	e := echo.New()
	xhttp.Handlers{
		NewForecastsEchoHandler(xlogger.Nop(), api),
		NewCurrenciesEchoHandler(xlogger.Nop(), rates, []string{"THB", "jpy"}),
	}.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, rec.Code, env.Status)
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func twoDays() []models.DailyForecast {
	d := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	return []models.DailyForecast{
		{Date: d, P10: 0.9, P50: 1.0, P90: 1.1},
		{Date: d.AddDate(0, 0, 1), P10: 1.0, P50: 1.1, P90: 1.2},
	}
}

func TestDailyForecast(t *testing.T) {
	api := &fakeAPI{daily: twoDays()}
	e := newEcho(api, fakeRates{})

	rec := do(e, http.MethodGet, "/api/v1/forecasts/daily?base_currency=USD&target_currency=JPY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, api.gotDays)
	assert.Equal(t, "direct", rec.Header().Get("X-Forecast-Path"))

	var rows []map[string]interface{}
	decodeData(t, rec, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-10-18", rows[0]["date"])
	assert.Equal(t, 1.0, rows[0]["rate"])
	assert.NotContains(t, rows[0], "p10")

	rec = do(e, http.MethodGet, "/api/v1/forecasts/daily?base_currency=USD&target_currency=JPY&days=2&uncertainty=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &rows)
	assert.Equal(t, 0.9, rows[0]["p10"])
	assert.Equal(t, 1.1, rows[0]["p90"])
}

func TestCurrencyForecastPost(t *testing.T) {
	api := &fakeAPI{daily: twoDays()}
	e := newEcho(api, fakeRates{})

	rec := do(e, http.MethodPost, "/api/v1/forecasts/currency", `{"base_currency":"USD","target_currency":"EUR","days":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, api.gotDays)
}

func TestRequestValidation(t *testing.T) {
	e := newEcho(&fakeAPI{}, fakeRates{})

	for _, target := range []string{
		"/api/v1/forecasts/daily?target_currency=JPY",
		"/api/v1/forecasts/daily?base_currency=USD&target_currency=JPY&days=731",
		"/api/v1/forecasts/daily?base_currency=US&target_currency=JPY",
		"/api/v1/forecasts/monthly?base_currency=USD&target_currency=JPY&months=25",
		"/api/v1/currencies/rates?base_currency=DOLLAR",
	} {
		rec := do(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := do(e, http.MethodPost, "/api/v1/forecasts/rank", `{"base_currency":"USD","target_currency":"JPY","budget":100,"daily_local_cost":0,"trip_days":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{models.NewError(models.KindValidation, "base and target currency must differ"), http.StatusBadRequest},
		{models.NewError(models.KindDataUnavailable, "no data"), http.StatusServiceUnavailable},
		{models.NewError(models.KindInsufficientHistory, "short"), http.StatusServiceUnavailable},
		{models.NewError(models.KindPairUnresolvable, "XYZ"), http.StatusServiceUnavailable},
		{models.NewError(models.KindTrainingFailed, "nan loss"), http.StatusInternalServerError},
		{models.NewError(models.KindModelNotTrained, "untrained"), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		e := newEcho(&fakeAPI{err: tc.err}, fakeRates{})
		rec := do(e, http.MethodGet, "/api/v1/forecasts/daily?base_currency=USD&target_currency=JPY", "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Empty(t, rec.Header().Get("Retry-After"))
	}
}

func TestPoolSaturatedSetsRetryAfter(t *testing.T) {
	e := newEcho(&fakeAPI{err: models.NewError(models.KindPoolSaturated, "full")}, fakeRates{})
	rec := do(e, http.MethodGet, "/api/v1/forecasts/monthly?base_currency=USD&target_currency=JPY", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "ERR_BUSY")
}

func TestRankPassesOrderThrough(t *testing.T) {
	e := newEcho(&fakeAPI{}, fakeRates{})
	rec := do(e, http.MethodPost, "/api/v1/forecasts/rank",
		`{"base_currency":"USD","target_currency":"JPY","budget":100,"daily_local_cost":10,"trip_days":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var ranked []models.RankedMonth
	decodeData(t, rec, &ranked)
	require.Len(t, ranked, 2)
	assert.Equal(t, "m2", ranked[0].Month)
	assert.Equal(t, 8.0, ranked[0].ExpectedCost)
}

func TestInvalidateCache(t *testing.T) {
	api := &fakeAPI{}
	e := newEcho(api, fakeRates{})

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/forecasts/cache?base_currency=USD&target_currency=JPY", "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/forecasts/cache", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodDelete, "/api/v1/forecasts/cache?base_currency=USD", "").Code)
	assert.Equal(t, []string{"USD/JPY", "/"}, api.invalidated)
}

func TestCurrenciesEndpoints(t *testing.T) {
	e := newEcho(&fakeAPI{}, fakeRates{})

	rec := do(e, http.MethodGet, "/api/v1/currencies/supported", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []string `json:"rows"`
		Total int64    `json:"total"`
	}
	decodeData(t, rec, &list)
	assert.Equal(t, []string{"AUD", "CAD", "EUR", "GBP", "JPY", "THB", "USD"}, list.Rows)
	assert.Equal(t, int64(7), list.Total)

	rec = do(e, http.MethodGet, "/api/v1/currencies/rates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rates models.SpotRates
	decodeData(t, rec, &rates)
	assert.Equal(t, "USD", rates.Base)

	e = newEcho(&fakeAPI{}, fakeRates{err: models.NewError(models.KindDataUnavailable, "down")})
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/api/v1/currencies/rates?base_currency=eur", "").Code)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", "").Code)
}
