package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"TravelFX/internal/domain/models"
	"TravelFX/internal/services/features"
	"TravelFX/pkg/logger"
	"TravelFX/pkg/util"
)

// CrossRateResolver prices a pair with no direct market through an anchor currency.
type CrossRateResolver struct {
	fetcher SeriesFetcher
	anchor  string
	volPct  float64
	l       *logger.Logger
}

func NewCrossRateResolver(fetcher SeriesFetcher, anchor string, volPct float64, l *logger.Logger) *CrossRateResolver {
	if anchor == "" {
		anchor = "USD"
	}
	if volPct <= 0 {
		volPct = 0.02
	}
	return &CrossRateResolver{fetcher: fetcher, anchor: models.NormalizeCode(anchor), volPct: volPct, l: l}
}

// leg is the anchor-per-currency series for one side; nil points mean the identity leg.
type leg struct {
	code   string
	points []models.RatePoint
}

func (lg leg) identity() bool { return lg.points == nil }

// Resolve returns base-per-quote at the latest date both legs cover, with a synthetic
// volatility proportional to the rate and zero trend.
func (r *CrossRateResolver) Resolve(ctx context.Context, base, quote string) (*models.CrossRate, error) {
	pair, err := models.NewCurrencyPair(base, quote)
	if err != nil {
		return nil, err
	}

	var baseLeg, quoteLeg leg
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseLeg, err = r.fetchLeg(gctx, pair.Base)
		return err
	})
	g.Go(func() error {
		var err error
		quoteLeg, err = r.fetchLeg(gctx, pair.Quote)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	asOf, ok := latestCommon(baseLeg, quoteLeg)
	if !ok {
		return nil, models.NewError(models.KindPairUnresolvable,
			"%s and %s legs share no common date", pair.Base, pair.Quote)
	}

	rate := legRate(quoteLeg, asOf) / legRate(baseLeg, asOf)
	cr := &models.CrossRate{
		Pair:       pair,
		Rate:       rate,
		AsOf:       asOf,
		Volatility: rate * r.volPct,
		Trend:      0,
	}
	r.l.Info("cross rate resolved",
		logger.String("pair", pair.Key()),
		logger.String("anchor", r.anchor),
		logger.Float64("rate", rate),
		logger.String("as_of", asOf.Format(util.DateLayout)))
	return cr, nil
}

// fetchLeg returns anchor-per-code, trying {anchor, code} and then the inverted
// {code, anchor}.
func (r *CrossRateResolver) fetchLeg(ctx context.Context, code string) (leg, error) {
	if code == r.anchor {
		return leg{code: code}, nil
	}

	direct := models.CurrencyPair{Base: r.anchor, Quote: code}
	series, err := r.fetcher.Fetch(ctx, direct)
	if err == nil {
		return leg{code: code, points: series.Points}, nil
	}
	if ctxErr(ctx, err) {
		return leg{}, err
	}
	r.l.Debug("anchor leg failed, trying inverse",
		logger.String("pair", direct.Key()), logger.Error(err))

	series, invErr := r.fetcher.Fetch(ctx, direct.Inverse())
	if invErr == nil {
		return leg{code: code, points: features.Invert(series.Points)}, nil
	}
	if ctxErr(ctx, invErr) {
		return leg{}, invErr
	}
	return leg{}, models.WrapError(models.KindPairUnresolvable, errors.Join(err, invErr),
		"no %s rate against %s in either direction", code, r.anchor)
}

func ctxErr(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// latestCommon finds the latest date covered by every non-identity leg. Series are
// daily and gap-free, so the overlap is [max(first), min(last)].
func latestCommon(legs ...leg) (time.Time, bool) {
	var first, last time.Time
	seen := false
	for _, lg := range legs {
		if lg.identity() {
			continue
		}
		if len(lg.points) == 0 {
			return time.Time{}, false
		}
		f, l := lg.points[0].Date, lg.points[len(lg.points)-1].Date
		if !seen || f.After(first) {
			first = f
		}
		if !seen || l.Before(last) {
			last = l
		}
		seen = true
	}
	if !seen || last.Before(first) {
		return time.Time{}, false
	}
	return last, true
}

func legRate(lg leg, d time.Time) float64 {
	if lg.identity() {
		return 1
	}
	s := models.HistoricalSeries{Points: lg.points}
	v, _ := s.At(d)
	return v
}
