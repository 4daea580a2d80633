package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	models "TravelFX/internal/domain/models"
	domrepo "TravelFX/internal/domain/repository"
	"TravelFX/internal/service/metrics"
	xhttp "TravelFX/pkg/http"
	xlogger "TravelFX/pkg/logger"
)

var baseCurrencies = []string{"USD", "EUR", "GBP", "JPY", "AUD", "CAD"}

// CurrenciesEchoHandler serves currency metadata, spot rates and the liveness routes.
type CurrenciesEchoHandler struct {
	logger    *xlogger.Logger
	rates     domrepo.SpotRates
	supported []string
}

// NewCurrenciesEchoHandler lists the base currencies plus every tradable code.
func NewCurrenciesEchoHandler(logger *xlogger.Logger, rates domrepo.SpotRates, tradable []string) *CurrenciesEchoHandler {
	metrics.Register()
	seen := make(map[string]struct{})
	var supported []string
	for _, code := range append(append([]string(nil), baseCurrencies...), tradable...) {
		code = models.NormalizeCode(code)
		if _, ok := seen[code]; ok || !models.IsCurrencyCode(code) {
			continue
		}
		seen[code] = struct{}{}
		supported = append(supported, code)
	}
	sort.Strings(supported)
	return &CurrenciesEchoHandler{logger: logger, rates: rates, supported: supported}
}

func (h *CurrenciesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Welcome)
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1/currencies")
	g.GET("/supported", h.Supported)
	g.GET("/rates", h.Rates)
}

func (h *CurrenciesEchoHandler) Welcome(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"message": "Welcome to the TravelFX currency forecast API"})
}

func (h *CurrenciesEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CurrenciesEchoHandler) Supported(c echo.Context) error {
	return xhttp.ListResponse(c, h.supported, int64(len(h.supported)))
}

func (h *CurrenciesEchoHandler) Rates(c echo.Context) error {
	defer metrics.Observe("rates", time.Now())
	req := &models.RatesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.rates.Latest(c.Request().Context(), req.BaseCurrency)
	if err != nil {
		metrics.Error("rates", errorKind(err))
		h.logger.Warn("spot rates unavailable", xlogger.String("base", req.BaseCurrency), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, res)
}
