package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies forecasting failures so callers can branch without string matching.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindDataUnavailable     ErrorKind = "data_unavailable"
	KindInsufficientHistory ErrorKind = "insufficient_history"
	KindPairUnresolvable    ErrorKind = "pair_unresolvable"
	KindModelNotTrained     ErrorKind = "model_not_trained"
	KindTrainingFailed      ErrorKind = "training_failed"
	KindPoolSaturated       ErrorKind = "pool_saturated"
)

// ForecastError carries a kind, a human-readable detail and an optional cause.
type ForecastError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ForecastError) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ForecastError) Unwrap() error {
	return e.Err
}

// Is matches any ForecastError of the same kind, so errors.Is(err, ErrDataUnavailable) works.
func (e *ForecastError) Is(target error) bool {
	t, ok := target.(*ForecastError)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation          = &ForecastError{Kind: KindValidation}
	ErrDataUnavailable     = &ForecastError{Kind: KindDataUnavailable}
	ErrInsufficientHistory = &ForecastError{Kind: KindInsufficientHistory}
	ErrPairUnresolvable    = &ForecastError{Kind: KindPairUnresolvable}
	ErrModelNotTrained     = &ForecastError{Kind: KindModelNotTrained}
	ErrTrainingFailed      = &ForecastError{Kind: KindTrainingFailed}
	ErrPoolSaturated       = &ForecastError{Kind: KindPoolSaturated}
)

// NewError builds a ForecastError with a formatted detail.
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	return &ForecastError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and detail to an underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) error {
	return &ForecastError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost ForecastError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var fe *ForecastError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsFetchFailure reports whether err means the market data could not supply a usable series.
func IsFetchFailure(err error) bool {
	kind, ok := KindOf(err)
	return ok && (kind == KindDataUnavailable || kind == KindInsufficientHistory)
}
