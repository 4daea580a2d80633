package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Tail returns the last n values (all of them if there are fewer).
func Tail(values []float64, n int) []float64 {
	if n <= 0 || n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// TrailingTrend is the average daily drift over the last window values:
// (last - first) / window.
func TrailingTrend(values []float64, window int) float64 {
	tail := Tail(values, window)
	if len(tail) < 2 {
		return 0
	}
	return (tail[len(tail)-1] - tail[0]) / float64(len(tail))
}

// TrailingStdDev is the sample standard deviation of the last window values.
func TrailingStdDev(values []float64, window int) float64 {
	tail := Tail(values, window)
	if len(tail) < 2 {
		return 0
	}
	return stat.StdDev(tail, nil)
}

// LogReturns computes r_t = ln(v_t / v_{t-1}); non-positive inputs yield 0.
func LogReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// AnnualizedVolatility of daily log returns over the last window days.
func AnnualizedVolatility(values []float64, window int) float64 {
	r := Tail(LogReturns(values), window)
	if len(r) < 2 {
		return 0
	}
	return stat.StdDev(r, nil) * math.Sqrt(365)
}

// AllFinite reports whether every value is a real number.
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MinMax scales values into [0, 1] and back.
type MinMax struct {
	Min, Max float64
}

// FitMinMax fits a scaler; ok is false when the range is degenerate relative to the level.
func FitMinMax(values []float64) (MinMax, bool) {
	if len(values) == 0 {
		return MinMax{}, false
	}
	lo, hi := floats.Min(values), floats.Max(values)
	scale := math.Max(math.Abs(hi), math.Abs(lo))
	if hi-lo <= 1e-9*math.Max(scale, 1e-12) {
		return MinMax{Min: lo, Max: hi}, false
	}
	return MinMax{Min: lo, Max: hi}, true
}

func (m MinMax) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	span := m.Max - m.Min
	for i, v := range values {
		out[i] = (v - m.Min) / span
	}
	return out
}

func (m MinMax) Inverse(v float64) float64 {
	return v*(m.Max-m.Min) + m.Min
}
