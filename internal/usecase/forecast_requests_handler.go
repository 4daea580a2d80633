package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TravelFX/internal/domain/models"
	domrepo "TravelFX/internal/domain/repository"
	pkgkafka "TravelFX/pkg/kafka"
	"TravelFX/pkg/logger"
)

// Forecaster is the slice of ForecastService that warm-up requests need.
type Forecaster interface {
	ForecastDaily(ctx context.Context, base, quote string, days int) (*models.ForecastResult, error)
	ForecastMonthly(ctx context.Context, base, quote string, months int) ([]models.MonthlyForecast, error)
}

// ForecastRequest is a cache warm-up request read from Kafka. Months wins over Days.
type ForecastRequest struct {
	BaseCurrency   string `json:"base_currency"`
	TargetCurrency string `json:"target_currency"`
	Days           int    `json:"days,omitempty"`
	Months         int    `json:"months,omitempty"`
}

// ForecastRequestsHandler consumes forecast requests and computes them so later
// HTTP calls hit the cache.
type ForecastRequestsHandler struct {
	topic   string
	svc     Forecaster
	metrics domrepo.Metrics
	l       *logger.Logger
}

func NewForecastRequestsHandler(topic string, svc Forecaster, metrics domrepo.Metrics, l *logger.Logger) *ForecastRequestsHandler {
	return &ForecastRequestsHandler{topic: topic, svc: svc, metrics: metrics, l: l}
}

func (h *ForecastRequestsHandler) Topic() string { return h.topic }

// Handle returns an error only for failures worth retrying. Requests that can never
// succeed are logged and acknowledged.
func (h *ForecastRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var req ForecastRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.l.Warn("malformed forecast request dropped", logger.Error(err))
		return nil
	}

	start := time.Now()
	var err error
	switch {
	case req.Months > 0:
		_, err = h.svc.ForecastMonthly(ctx, req.BaseCurrency, req.TargetCurrency, req.Months)
	case req.Days > 0:
		_, err = h.svc.ForecastDaily(ctx, req.BaseCurrency, req.TargetCurrency, req.Days)
	default:
		_, err = h.svc.ForecastDaily(ctx, req.BaseCurrency, req.TargetCurrency, 30)
	}
	h.metrics.RecordLatency("consumer_forecast", time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	h.metrics.RecordError("consumer_forecast")
	if !retryable(err) {
		h.l.Warn("forecast request rejected",
			logger.String("base", req.BaseCurrency),
			logger.String("target", req.TargetCurrency),
			logger.String("trace_id", pkgkafka.TraceID(ctx)),
			logger.Error(err))
		return nil
	}
	return fmt.Errorf("forecast %s/%s: %w", req.BaseCurrency, req.TargetCurrency, err)
}

// retryable reports whether err may clear up on its own.
func retryable(err error) bool {
	kind, ok := models.KindOf(err)
	if !ok {
		return true
	}
	switch kind {
	case models.KindPoolSaturated, models.KindDataUnavailable:
		return true
	default:
		return false
	}
}

var _ pkgkafka.MessageHandler = (*ForecastRequestsHandler)(nil)
