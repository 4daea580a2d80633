// Package yahoo reads daily closes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TravelFX/internal/domain/models"
	xhttp "TravelFX/pkg/http"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/util"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// browserUA avoids the 429s Yahoo returns to obviously scripted agents.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
				// GMTOffset is the exchange's UTC offset in seconds. FX bars are
				// stamped at London midnight, so summer bars fall on the prior UTC day.
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client implements repository.MarketData.
type Client struct {
	baseURL string
	http    *xhttp.Client
	l       *logger.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout replaces the default request timeout, keeping the browser User-Agent.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithTimeout(d), xhttp.WithUserAgent(browserUA)) }
}

func NewClient(l *logger.Logger, opts ...Option) *Client {
	c := &Client{baseURL: DefaultBaseURL, l: l}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(20*time.Second), xhttp.WithUserAgent(browserUA))
	}
	return c
}

// DailyCloses fetches interval=1d closes for ticker in [from, to]. Null closes are
// returned as nil so the caller decides how to clean them.
func (c *Client) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]models.DailyClose, error) {
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker)
	query := map[string][]string{
		"interval": {"1d"},
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.Unix(), 10)},
	}

	var resp chartResponse
	if err := c.http.GetJSON(ctx, endpoint, query, &resp); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, models.NewError(models.KindDataUnavailable, "ticker %s not recognized", ticker)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.l.Warn("yahoo chart request failed", logger.String("ticker", ticker), logger.Error(err))
		return nil, models.WrapError(models.KindDataUnavailable, err, "market data request for %s failed", ticker)
	}

	if e := resp.Chart.Error; e != nil {
		return nil, models.NewError(models.KindDataUnavailable, "ticker %s: %s", ticker, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, models.NewError(models.KindDataUnavailable, "no chart result for %s", ticker)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, models.NewError(models.KindDataUnavailable, "no prices for %s in window", ticker)
	}

	closes := result.Indicators.Quote[0].Close
	n := min(len(result.Timestamp), len(closes))
	out := make([]models.DailyClose, 0, n)
	offset := result.Meta.GMTOffset
	for i := 0; i < n; i++ {
		out = append(out, models.DailyClose{
			Date:  util.DayStart(time.Unix(result.Timestamp[i]+offset, 0)),
			Close: closes[i],
		})
	}

	c.l.Debug("yahoo closes fetched", logger.String("ticker", ticker), logger.Int("rows", len(out)))
	return out, nil
}
