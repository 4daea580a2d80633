package forecasting

import (
	"sort"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/pkg/util"
)

// AggregateMonthly averages daily quantiles per calendar month, ascending by month,
// keeping at most maxMonths entries (all of them when maxMonths <= 0). Averaging
// preserves P10 <= P50 <= P90.
func AggregateMonthly(daily []models.DailyForecast, maxMonths int) []models.MonthlyForecast {
	type acc struct {
		p10, p50, p90 float64
		n             int
	}

	buckets := make(map[time.Time]*acc)
	for _, d := range daily {
		key := util.MonthStart(d.Date)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.p10 += d.P10
		a.p50 += d.P50
		a.p90 += d.P90
		a.n++
	}

	months := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	if maxMonths > 0 && len(months) > maxMonths {
		months = months[:maxMonths]
	}

	out := make([]models.MonthlyForecast, 0, len(months))
	for _, m := range months {
		a := buckets[m]
		n := float64(a.n)
		out = append(out, models.MonthlyForecast{
			Month: m.Format(util.MonthLayout),
			P10:   a.p10 / n,
			P50:   a.p50 / n,
			P90:   a.p90 / n,
		})
	}
	return out
}
