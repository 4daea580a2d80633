package forecasting

import (
	"math"
	"sort"

	"TravelFX/internal/domain/models"
)

// tailFraction places the 0 and 1 mass points a quarter of the neighbouring
// quantile gap beyond P10 and P90.
const tailFraction = 0.25

// RankMonths scores each month for a trip costing dailyLocalCost (in the target
// currency) per day for tripDays days against budget (in the base currency).
// Months are ordered by probability of staying within budget, highest first,
// then by expected cost, cheapest first. Ties keep month order.
func RankMonths(monthly []models.MonthlyForecast, budget, dailyLocalCost float64, tripDays int) ([]models.RankedMonth, error) {
	if budget < 0 || math.IsNaN(budget) {
		return nil, models.NewError(models.KindValidation, "budget cannot be negative")
	}
	if dailyLocalCost <= 0 || math.IsNaN(dailyLocalCost) {
		return nil, models.NewError(models.KindValidation, "daily_local_cost must be positive")
	}
	if tripDays <= 0 {
		return nil, models.NewError(models.KindValidation, "trip_days must be positive")
	}

	localTotal := dailyLocalCost * float64(tripDays)
	threshold := budget / localTotal

	ranked := make([]models.RankedMonth, 0, len(monthly))
	for _, m := range monthly {
		cost := localTotal * m.P50
		ranked = append(ranked, models.RankedMonth{
			Month:                   m.Month,
			P10:                     m.P10,
			P50:                     m.P50,
			P90:                     m.P90,
			ExpectedCost:            cost,
			ProbabilityWithinBudget: withinBudget(m, threshold, cost <= budget),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ProbabilityWithinBudget != ranked[j].ProbabilityWithinBudget {
			return ranked[i].ProbabilityWithinBudget > ranked[j].ProbabilityWithinBudget
		}
		return ranked[i].ExpectedCost < ranked[j].ExpectedCost
	})
	return ranked, nil
}

// withinBudget is the forecast mass at or below the threshold rate.
func withinBudget(m models.MonthlyForecast, threshold float64, centralFits bool) float64 {
	if m.P10 == m.P50 && m.P50 == m.P90 {
		if centralFits {
			return 1
		}
		return 0
	}
	return quantileMass(m.P10, m.P50, m.P90, threshold)
}

// quantileMass interpolates the CDF linearly through (p10,.1), (p50,.5), (p90,.9)
// with tails reaching 0 and 1. Ties resolve to the higher mass, so a threshold
// equal to a quantile counts that quantile's mass.
func quantileMass(p10, p50, p90, x float64) float64 {
	xs := [5]float64{
		p10 - tailFraction*(p50-p10),
		p10,
		p50,
		p90,
		p90 + tailFraction*(p90-p50),
	}
	ys := [5]float64{0, 0.1, 0.5, 0.9, 1}

	if x < xs[0] {
		return 0
	}
	if x >= xs[4] {
		return 1
	}

	i := 0
	for k := range xs {
		if xs[k] <= x {
			i = k
		}
	}
	if i == len(xs)-1 {
		return 1
	}
	// xs[i] <= x < xs[i+1], so the segment has positive width
	frac := (x - xs[i]) / (xs[i+1] - xs[i])
	return ys[i] + (ys[i+1]-ys[i])*frac
}
