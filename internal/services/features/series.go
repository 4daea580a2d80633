// Package features turns raw provider closes into model-ready daily series.
package features

import (
	"math"
	"sort"
	"time"

	"TravelFX/internal/domain/models"
	"TravelFX/pkg/util"
)

// CleanCloses drops missing, non-finite and non-positive closes, normalizes dates to
// UTC midnight, sorts them and keeps the last close seen for a duplicated date.
func CleanCloses(rows []models.DailyClose) []models.RatePoint {
	byDay := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		if r.Close == nil {
			continue
		}
		v := *r.Close
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		byDay[util.DayStart(r.Date)] = v
	}

	out := make([]models.RatePoint, 0, len(byDay))
	for d, v := range byDay {
		out = append(out, models.RatePoint{Date: d, Rate: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ReindexDaily fills every calendar day between the first and last point, linearly
// interpolating between the nearest valid neighbours. Input must be sorted and
// de-duplicated, as CleanCloses returns it.
func ReindexDaily(points []models.RatePoint) []models.RatePoint {
	if len(points) < 2 {
		return append([]models.RatePoint(nil), points...)
	}

	total := util.DaysBetween(points[0].Date, points[len(points)-1].Date) + 1
	out := make([]models.RatePoint, 0, total)

	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		gap := util.DaysBetween(a.Date, b.Date)
		for k := 0; k < gap; k++ {
			frac := float64(k) / float64(gap)
			out = append(out, models.RatePoint{
				Date: util.AddDays(a.Date, k),
				Rate: a.Rate + (b.Rate-a.Rate)*frac,
			})
		}
	}
	return append(out, points[len(points)-1])
}

// Invert returns the reciprocal series, used when only the opposite ticker exists.
func Invert(points []models.RatePoint) []models.RatePoint {
	out := make([]models.RatePoint, len(points))
	for i, p := range points {
		out[i] = models.RatePoint{Date: p.Date, Rate: 1 / p.Rate}
	}
	return out
}
