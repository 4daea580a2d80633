package models

import "time"

// Forecast paths.
const (
	PathDirect = "direct"
	PathCross  = "cross"
)

// DailyForecast holds one day's quantiles. P10 <= P50 <= P90; a deterministic
// model sets all three equal.
type DailyForecast struct {
	Date time.Time `msgpack:"d"`
	P10  float64   `msgpack:"lo"`
	P50  float64   `msgpack:"mid"`
	P90  float64   `msgpack:"hi"`
}

// Deterministic reports whether the band has collapsed to a point.
func (f DailyForecast) Deterministic() bool {
	return f.P10 == f.P50 && f.P50 == f.P90
}

// MonthlyForecast is the mean of a calendar month's daily quantiles. Month is YYYY-MM.
type MonthlyForecast struct {
	Month string  `json:"month"`
	P10   float64 `json:"p10"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
}

// RankedMonth is a month scored against a trip budget.
type RankedMonth struct {
	Month                   string  `json:"month"`
	P10                     float64 `json:"p10"`
	P50                     float64 `json:"p50"`
	P90                     float64 `json:"p90"`
	ExpectedCost            float64 `json:"expected_cost"`
	ProbabilityWithinBudget float64 `json:"probability_within_budget"`
}

// ForecastResult is what one unit of forecasting work produces and what the cache holds.
type ForecastResult struct {
	Pair      CurrencyPair    `msgpack:"pair"`
	Path      string          `msgpack:"path"`
	Model     string          `msgpack:"model"`
	Daily     []DailyForecast `msgpack:"daily"`
	CreatedAt time.Time       `msgpack:"created_at"`
}

// InUTC puts every timestamp back in UTC. Decoders may hand times back in
// the host's local zone, which shifts calendar dates west of Greenwich.
func (r *ForecastResult) InUTC() {
	for i := range r.Daily {
		r.Daily[i].Date = r.Daily[i].Date.UTC()
	}
	r.CreatedAt = r.CreatedAt.UTC()
}

// ForecastRun is the audit record emitted after a forecast is computed.
type ForecastRun struct {
	ID          string          `json:"id"`
	Pair        CurrencyPair    `json:"pair"`
	Path        string          `json:"path"`
	Model       string          `json:"model"`
	HorizonDays int             `json:"horizon_days"`
	CreatedAt   time.Time       `json:"created_at"`
	Daily       []DailyForecast `json:"daily"`
}
