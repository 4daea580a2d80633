package models

import "time"

// DailyClose is one raw provider row. A nil Close is a missing value.
type DailyClose struct {
	Date  time.Time
	Close *float64
}

// RatePoint is one day of a cleaned series.
type RatePoint struct {
	Date time.Time `msgpack:"d"`
	Rate float64   `msgpack:"r"`
}

// HistoricalSeries is a cleaned daily series: dates strictly increasing by one
// calendar day, no gaps, every rate positive.
type HistoricalSeries struct {
	Pair   CurrencyPair
	Points []RatePoint
}

func (s *HistoricalSeries) Len() int {
	return len(s.Points)
}

// Last returns the most recent point. The series must not be empty.
func (s *HistoricalSeries) Last() RatePoint {
	return s.Points[len(s.Points)-1]
}

func (s *HistoricalSeries) First() RatePoint {
	return s.Points[0]
}

// Values returns the rates in date order.
func (s *HistoricalSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Rate
	}
	return out
}

// Dates returns the dates in order.
func (s *HistoricalSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// At returns the rate on day d, if the series covers it.
func (s *HistoricalSeries) At(d time.Time) (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	idx := int(d.Sub(s.Points[0].Date).Hours() / 24)
	if idx < 0 || idx >= len(s.Points) || !s.Points[idx].Date.Equal(d) {
		return 0, false
	}
	return s.Points[idx].Rate, true
}

// CrossRate is a point estimate synthesized through an anchor currency. It carries
// only what a degraded trend forecast needs.
type CrossRate struct {
	Pair       CurrencyPair
	Rate       float64
	AsOf       time.Time
	Volatility float64
	Trend      float64
}
