package features

import (
	"math"
	"testing"
	"time"

	"TravelFX/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCleanClosesDropsInvalidAndSorts(t *testing.T) {
	rows := []models.DailyClose{
		{Date: day(2024, 1, 3).Add(21 * time.Hour), Close: f(1.3)},
		{Date: day(2024, 1, 1), Close: f(1.1)},
		{Date: day(2024, 1, 2), Close: nil},
		{Date: day(2024, 1, 4), Close: f(math.NaN())},
		{Date: day(2024, 1, 5), Close: f(-2)},
		{Date: day(2024, 1, 6), Close: f(1.6)},
		{Date: day(2024, 1, 6).Add(time.Hour), Close: f(1.7)},
	}

	got := CleanCloses(rows)
	require.Len(t, got, 3)
	assert.Equal(t, day(2024, 1, 1), got[0].Date)
	assert.Equal(t, day(2024, 1, 3), got[1].Date)
	assert.Equal(t, day(2024, 1, 6), got[2].Date)
	assert.InDelta(t, 1.7, got[2].Rate, 1e-12)
}

func TestReindexDailyInterpolatesGaps(t *testing.T) {
	pts := []models.RatePoint{
		{Date: day(2024, 2, 28), Rate: 1.0},
		{Date: day(2024, 3, 2), Rate: 2.0},
		{Date: day(2024, 3, 3), Rate: 4.0},
	}

	got := ReindexDaily(pts)
	require.Len(t, got, 5)
	want := []float64{1.0, 1.0 + 1.0/3, 1.0 + 2.0/3, 2.0, 4.0}
	for i, p := range got {
		assert.Equal(t, day(2024, 2, 28).AddDate(0, 0, i), p.Date)
		assert.InDelta(t, want[i], p.Rate, 1e-12)
	}
}

func TestReindexDailyKeepsSinglePoint(t *testing.T) {
	got := ReindexDaily([]models.RatePoint{{Date: day(2024, 1, 1), Rate: 3}})
	assert.Len(t, got, 1)
}

func TestTrailingStats(t *testing.T) {
	values := []float64{5, 1, 2, 3, 4}

	assert.InDelta(t, (4.0-1.0)/4, TrailingTrend(values, 4), 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), TrailingStdDev(values, 4), 1e-12)
	assert.Zero(t, TrailingStdDev([]float64{1}, 30))
}

func TestFitMinMaxRejectsConstantSeries(t *testing.T) {
	_, ok := FitMinMax([]float64{0.5, 0.5, 0.5})
	assert.False(t, ok)

	m, ok := FitMinMax([]float64{2, 4, 3})
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0.5}, m.Transform([]float64{2, 4, 3}))
	assert.InDelta(t, 3.0, m.Inverse(0.5), 1e-12)
}

func TestCalendarEncodingIsCyclic(t *testing.T) {
	dec := CalendarEncoding(day(2024, 12, 31))
	jan := CalendarEncoding(day(2025, 1, 1))
	jun := CalendarEncoding(day(2025, 6, 15))

	distDecJan := math.Hypot(dec[0]-jan[0], dec[1]-jan[1])
	distJanJun := math.Hypot(jun[0]-jan[0], jun[1]-jan[1])
	assert.Less(t, distDecJan, distJanJun)

	assert.Len(t, AppendCalendar(nil, day(2025, 1, 1), 3), 3*CalendarWidth)
}
