package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	models "TravelFX/internal/domain/models"
	"TravelFX/internal/service/metrics"
	xhttp "TravelFX/pkg/http"
	xlogger "TravelFX/pkg/logger"
	"TravelFX/pkg/util"
)

// ForecastAPI is what the forecast endpoints need from the service layer.
type ForecastAPI interface {
	ForecastDaily(ctx context.Context, base, quote string, days int) (*models.ForecastResult, error)
	ForecastMonthly(ctx context.Context, base, quote string, months int) ([]models.MonthlyForecast, error)
	RankForTrip(ctx context.Context, base, quote string, months int, budget, dailyLocalCost float64, tripDays int) ([]models.RankedMonth, error)
	Invalidate(ctx context.Context, base, quote string) error
}

// ForecastsEchoHandler serves the forecast endpoints. It only binds, validates and
// maps errors; all forecasting happens in the service.
type ForecastsEchoHandler struct {
	logger *xlogger.Logger
	svc    ForecastAPI
}

func NewForecastsEchoHandler(logger *xlogger.Logger, svc ForecastAPI) *ForecastsEchoHandler {
	metrics.Register()
	return &ForecastsEchoHandler{logger: logger, svc: svc}
}

func (h *ForecastsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/forecasts")
	g.GET("/daily", h.Daily)
	g.POST("/currency", h.Currency)
	g.GET("/monthly", h.Monthly)
	g.POST("/rank", h.Rank)
	g.DELETE("/cache", h.InvalidateCache)
}

// Daily returns GET /daily?base_currency=&target_currency=&days=&uncertainty=.
func (h *ForecastsEchoHandler) Daily(c echo.Context) error {
	defer metrics.Observe("daily", time.Now())
	req := &models.DailyForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.daily(c, "daily", req)
}

// Currency is the POST form of Daily, taking a JSON body.
func (h *ForecastsEchoHandler) Currency(c echo.Context) error {
	defer metrics.Observe("currency", time.Now())
	req := &models.DailyForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.daily(c, "currency", req)
}

func (h *ForecastsEchoHandler) daily(c echo.Context, endpoint string, req *models.DailyForecastRequest) error {
	res, err := h.svc.ForecastDaily(c.Request().Context(), req.BaseCurrency, req.TargetCurrency, req.Days)
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	rows := make([]models.DailyRate, len(res.Daily))
	for i, d := range res.Daily {
		rows[i] = models.DailyRate{Date: d.Date.Format(util.DateLayout), Rate: d.P50}
		if req.Uncertainty {
			p10, p90 := d.P10, d.P90
			rows[i].P10, rows[i].P90 = &p10, &p90
		}
	}
	c.Response().Header().Set("X-Forecast-Path", res.Path)
	c.Response().Header().Set("X-Forecast-Model", res.Model)
	return xhttp.SuccessResponse(c, rows)
}

func (h *ForecastsEchoHandler) Monthly(c echo.Context) error {
	defer metrics.Observe("monthly", time.Now())
	req := &models.MonthlyForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.ForecastMonthly(c.Request().Context(), req.BaseCurrency, req.TargetCurrency, req.Months)
	if err != nil {
		return h.fail(c, "monthly", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastsEchoHandler) Rank(c echo.Context) error {
	defer metrics.Observe("rank", time.Now())
	req := &models.RankRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.RankForTrip(c.Request().Context(),
		req.BaseCurrency, req.TargetCurrency, req.Months, req.Budget, req.DailyLocalCost, req.TripDays)
	if err != nil {
		return h.fail(c, "rank", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastsEchoHandler) InvalidateCache(c echo.Context) error {
	req := &models.CacheRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.svc.Invalidate(c.Request().Context(), req.BaseCurrency, req.TargetCurrency); err != nil {
		return h.fail(c, "invalidate", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ForecastsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.Error(endpoint, errorKind(err))
	if appErr.Status >= 500 && appErr.Status != 503 {
		h.logger.Error(endpoint+" forecast failed", xlogger.Error(err))
	} else {
		h.logger.Warn(endpoint+" forecast rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
