package api

import (
	"context"
	"errors"
	"net/http"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/usecase"
	xhttp "TravelFX/pkg/http"
)

// toAppError maps domain failures onto transport errors. Kinds are never
// downgraded; anything unclassified is a 500.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return xhttp.GatewayTimeoutError("forecast did not finish in time").WithError(err)
	}
	if errors.Is(err, context.Canceled) {
		return xhttp.ServiceUnavailableError("ERR_CANCELED", "request canceled").WithError(err)
	}

	var fe *models.ForecastError
	if !errors.As(err, &fe) {
		return xhttp.InternalError("Something went wrong").WithError(err)
	}

	msg := fe.Detail
	if msg == "" {
		msg = string(fe.Kind)
	}

	switch fe.Kind {
	case models.KindValidation:
		return xhttp.NewAppError("ERR_VALIDATION", "", msg, http.StatusBadRequest).WithError(err)
	case models.KindDataUnavailable:
		return xhttp.ServiceUnavailableError("ERR_DATA_UNAVAILABLE", msg).WithError(err)
	case models.KindInsufficientHistory:
		return xhttp.ServiceUnavailableError("ERR_INSUFFICIENT_HISTORY", msg).WithError(err)
	case models.KindPairUnresolvable:
		return xhttp.ServiceUnavailableError("ERR_PAIR_UNRESOLVABLE", msg).WithError(err)
	case models.KindPoolSaturated:
		return xhttp.ServiceUnavailableError("ERR_BUSY", "forecast capacity exhausted, retry later").
			RetryAfter(usecase.RetryAfter()).
			WithError(err)
	case models.KindTrainingFailed:
		return xhttp.NewAppError("ERR_TRAINING_FAILED", "", msg, http.StatusInternalServerError).WithError(err)
	case models.KindModelNotTrained:
		return xhttp.NewAppError("ERR_MODEL_NOT_TRAINED", "", msg, http.StatusInternalServerError).WithError(err)
	default:
		return xhttp.InternalError(msg).WithError(err)
	}
}

// errorKind labels err for metrics.
func errorKind(err error) string {
	if k, ok := models.KindOf(err); ok {
		return string(k)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline"
	}
	return "internal"
}
