package models

// Requests for the forecast HTTP endpoints and the Kafka warm-up topic.

type DailyForecastRequest struct {
	BaseCurrency   string `query:"base_currency" json:"base_currency" validate:"required,currency"`
	TargetCurrency string `query:"target_currency" json:"target_currency" validate:"required,currency"`
	Days           int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=730"`
	Uncertainty    bool   `query:"uncertainty" json:"uncertainty"`
}

type MonthlyForecastRequest struct {
	BaseCurrency   string `query:"base_currency" json:"base_currency" validate:"required,currency"`
	TargetCurrency string `query:"target_currency" json:"target_currency" validate:"required,currency"`
	Months         int    `query:"months" json:"months" default:"12" validate:"gte=1,lte=24"`
}

type RankRequest struct {
	BaseCurrency   string  `json:"base_currency" validate:"required,currency"`
	TargetCurrency string  `json:"target_currency" validate:"required,currency"`
	Months         int     `json:"months" default:"12" validate:"gte=1,lte=24"`
	Budget         float64 `json:"budget" validate:"gte=0"`
	DailyLocalCost float64 `json:"daily_local_cost" validate:"gt=0"`
	TripDays       int     `json:"trip_days" validate:"gte=1"`
}

type RatesRequest struct {
	BaseCurrency string `query:"base_currency" json:"base_currency" default:"USD" validate:"currency"`
}

// DailyRate is the wire row of a daily forecast. Bands are only set when requested.
type DailyRate struct {
	Date string   `json:"date"`
	Rate float64  `json:"rate"`
	P10  *float64 `json:"p10,omitempty"`
	P90  *float64 `json:"p90,omitempty"`
}

// SpotRates is the latest rate table for a base currency.
type SpotRates struct {
	Base      string             `json:"base_currency"`
	UpdatedAt string             `json:"updated_at"`
	Rates     map[string]float64 `json:"rates"`
}

// CacheRequest scopes a cache invalidation; both codes empty clears every pair.
type CacheRequest struct {
	BaseCurrency   string `query:"base_currency" json:"base_currency" validate:"required_with=TargetCurrency,omitempty,currency"`
	TargetCurrency string `query:"target_currency" json:"target_currency" validate:"required_with=BaseCurrency,omitempty,currency"`
}
