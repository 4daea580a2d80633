package erapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"TravelFX/internal/domain/models"
	"TravelFX/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestCachesPerBase(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v6/latest/EUR", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","base_code":"EUR","time_last_update_unix":1767225600,"rates":{"EUR":1,"USD":1.08,"JPY":160.2}}`))
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), WithBaseURL(srv.URL))
	rates, err := c.Latest(context.Background(), "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", rates.Base)
	assert.InDelta(t, 160.2, rates.Rates["JPY"], 1e-9)
	assert.Equal(t, "2026-01-01T00:00:00Z", rates.UpdatedAt)

	_, err = c.Latest(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLatestUsesKeyedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/secret/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1}}`))
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), WithBaseURL(srv.URL), WithAPIKey("secret"))
	_, err := c.Latest(context.Background(), "USD")
	require.NoError(t, err)
}

func TestLatestProviderErrorIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), WithBaseURL(srv.URL))
	_, err := c.Latest(context.Background(), "USD")
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
