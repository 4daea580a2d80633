// Package testutil holds in-memory fakes of the domain repositories.
package testutil

import (
	"context"
	"sync"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/pkg/util"
)

// MarketData serves canned closes keyed by ticker. Unknown tickers fail with
// models.ErrDataUnavailable, like the real provider.
type MarketData struct {
	mu     sync.Mutex
	series map[string][]models.DailyClose
	errs   map[string]error
	calls  map[string]int
}

func NewMarketData() *MarketData {
	return &MarketData{
		series: make(map[string][]models.DailyClose),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (m *MarketData) Set(ticker string, rows []models.DailyClose) *MarketData {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[ticker] = rows
	return m
}

func (m *MarketData) Fail(ticker string, err error) *MarketData {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[ticker] = err
	return m
}

// Calls returns how many times ticker was requested.
func (m *MarketData) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

func (m *MarketData) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]models.DailyClose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[ticker]++
	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	rows, ok := m.series[ticker]
	if !ok {
		return nil, models.NewError(models.KindDataUnavailable, "no data for %s", ticker)
	}
	return rows, nil
}

// Closes builds n consecutive daily closes ending on end, valued by f(i).
func Closes(end time.Time, n int, f func(i int) float64) []models.DailyClose {
	start := util.AddDays(util.DayStart(end), -(n - 1))
	out := make([]models.DailyClose, n)
	for i := range out {
		v := f(i)
		out[i] = models.DailyClose{Date: util.AddDays(start, i), Close: &v}
	}
	return out
}

// Flat returns a constant-valued close generator.
func Flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

// Linear returns start + step*i.
func Linear(start, step float64) func(int) float64 {
	return func(i int) float64 { return start + step*float64(i) }
}

// RunSink records every run it is given.
type RunSink struct {
	mu   sync.Mutex
	runs []*models.ForecastRun
	Err  error
}

func (s *RunSink) Process(_ context.Context, run *models.ForecastRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return s.Err
}

func (s *RunSink) Runs() []*models.ForecastRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.ForecastRun(nil), s.runs...)
}

// Metrics counts calls by name.
type Metrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMetrics() *Metrics { return &Metrics{counts: make(map[string]int)} }

func (m *Metrics) inc(key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *Metrics) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *Metrics) RecordForecast(path, model string)  { m.inc("forecast:" + path + ":" + model) }
func (m *Metrics) RecordFallback(reason string)       { m.inc("fallback:" + reason) }
func (m *Metrics) RecordError(kind string)            { m.inc("error:" + kind) }
func (m *Metrics) RecordLatency(op string, _ float64) { m.inc("latency:" + op) }
func (m *Metrics) RecordQueueDepth(int)               {}
func (m *Metrics) RecordRunSent(backend string)       { m.inc("sent:" + backend) }

// Publisher stores published runs, for processor tests.
type Publisher struct {
	mu     sync.Mutex
	Runs   []*models.ForecastRun
	Err    error
	Closed bool
}

func (p *Publisher) Publish(_ context.Context, run *models.ForecastRun) error {
	return p.PublishBatch(context.Background(), []*models.ForecastRun{run})
}

func (p *Publisher) PublishBatch(_ context.Context, runs []*models.ForecastRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Runs = append(p.Runs, runs...)
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	p.Closed = true
	p.mu.Unlock()
	return nil
}

func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Runs)
}
