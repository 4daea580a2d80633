package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "TravelFX/pkg/logger"
)

type pairQuery struct {
	Base  string `query:"base_currency" validate:"required,currency"`
	Quote string `query:"target_currency" validate:"required,currency,nefield=Base"`
	Days  int    `query:"days" default:"30" validate:"min=1,max=730"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/pair", func(c echo.Context) error {
		var q pairQuery
		if verr := ReadAndValidateRequest(c, &q); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, q)
	})
	e.GET("/busy", func(c echo.Context) error {
		return AppErrorResponse(c, ServiceUnavailableError("ERR_BUSY", "busy").RetryAfter(30))
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, assert.AnError)
	})
}

func serve(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServerValidationEnvelope(t *testing.T) {
	s := NewServer(applogger.Nop(), Handlers{routes{}})

	rec := serve(s, "/pair?base_currency=usd&target_currency=JPY")
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Status int       `json:"status"`
		Data   pairQuery `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, 200, ok.Status)
	assert.Equal(t, 30, ok.Data.Days)

	rec = serve(s, "/pair?base_currency=USD&target_currency=USD&days=800")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	codes := make([]string, 0, len(bad.Data))
	for _, e := range bad.Data {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{"ERR_NEFIELD", "ERR_MAX"}, codes)
}

func TestAppErrorResponse(t *testing.T) {
	s := NewServer(applogger.Nop(), Handlers{routes{}})

	rec := serve(s, "/busy")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"ERR_BUSY"`)

	rec = serve(s, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestServerMetricsEndpoint(t *testing.T) {
	s := NewServer(applogger.Nop(), Handlers{routes{}}, WithMetricsPath("/metrics"))
	serve(s, "/busy")

	rec := serve(s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `travelfx_http_request_duration_seconds_count{class="5xx",method="GET",route="/busy"}`), body)
}
