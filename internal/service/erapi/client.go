// Package erapi reads spot rate tables from the open.er-api.com service.
package erapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/service/cache"
	xhttp "TravelFX/pkg/http"
	"TravelFX/pkg/logger"
)

const DefaultBaseURL = "https://open.er-api.com"

type latestResponse struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	Rates              map[string]float64 `json:"rates"`
}

// Client implements repository.SpotRates. Tables are cached per base for ttl.
type Client struct {
	baseURL string
	apiKey  string
	ttl     time.Duration
	http    *xhttp.Client
	cache   *cache.TTLCache[*models.SpotRates]
	l       *logger.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

func NewClient(l *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		ttl:     time.Hour,
		cache:   cache.NewTTLCache[*models.SpotRates](),
		l:       l,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	return c
}

func (c *Client) Latest(ctx context.Context, base string) (*models.SpotRates, error) {
	base = models.NormalizeCode(base)
	if !models.IsCurrencyCode(base) {
		return nil, models.NewError(models.KindValidation, "invalid base currency %q", base)
	}
	if cached, ok := c.cache.Get(base); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/v6/latest/%s", c.baseURL, base)
	if c.apiKey != "" {
		endpoint = fmt.Sprintf("%s/v6/%s/latest/%s", c.baseURL, c.apiKey, base)
	}

	var resp latestResponse
	if err := c.http.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.l.Warn("spot rate request failed", logger.String("base", base), logger.Error(err))
		return nil, models.WrapError(models.KindDataUnavailable, err, "spot rates for %s", base)
	}
	if resp.Result != "success" || len(resp.Rates) == 0 {
		return nil, models.NewError(models.KindDataUnavailable, "spot rates for %s: %s", base, resp.ErrorType)
	}

	out := &models.SpotRates{
		Base:      base,
		UpdatedAt: time.Unix(resp.TimeLastUpdateUnix, 0).UTC().Format(time.RFC3339),
		Rates:     resp.Rates,
	}
	c.cache.Set(base, out, c.ttl)
	return out, nil
}
