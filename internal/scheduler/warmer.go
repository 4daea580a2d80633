// Package scheduler refreshes cached forecasts on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"TravelFX/internal/domain/models"
	"TravelFX/pkg/logger"
)

// Refresher is the part of ForecastService the warmer drives.
type Refresher interface {
	Invalidate(ctx context.Context, base, quote string) error
	ForecastMonthly(ctx context.Context, base, quote string, months int) ([]models.MonthlyForecast, error)
}

// Locker is a shared lock so only one replica warms at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

const lockKey = "travelfx:warm:lock"

// Warmer recomputes the monthly forecasts of a fixed pair list so the first
// request of the day does not pay for training.
type Warmer struct {
	cron    *cron.Cron
	svc     Refresher
	pairs   []models.CurrencyPair
	months  int
	timeout time.Duration
	ctx     context.Context
	l       *logger.Logger

	lock    Locker
	lockTTL time.Duration
}

// NewWarmer parses pairs such as "USD/JPY". Invalid pairs fail construction.
func NewWarmer(ctx context.Context, svc Refresher, pairs []string, months int, timeout time.Duration, l *logger.Logger) (*Warmer, error) {
	w := &Warmer{
		cron:    cron.New(cron.WithSeconds()),
		svc:     svc,
		months:  months,
		timeout: timeout,
		ctx:     ctx,
		l:       l,
	}
	for _, s := range pairs {
		p, err := models.ParsePair(s)
		if err != nil {
			return nil, fmt.Errorf("warm pair %q: %w", s, err)
		}
		w.pairs = append(w.pairs, p)
	}
	return w, nil
}

// WithLock makes RunNow skip the round when another holder owns the lock.
func (w *Warmer) WithLock(lock Locker, ttl time.Duration) *Warmer {
	w.lock = lock
	w.lockTTL = ttl
	return w
}

// Register adds the warm-up job under a six-field cron spec.
func (w *Warmer) Register(spec string) error {
	if _, err := w.cron.AddFunc(spec, func() { w.RunNow() }); err != nil {
		return fmt.Errorf("register warm-up task: %w", err)
	}
	return nil
}

func (w *Warmer) Start() {
	w.cron.Start()
	w.l.Info("forecast warmer started", logger.Int("pairs", len(w.pairs)))
}

// Stop waits for a running warm-up to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.l.Info("forecast warmer stopped")
}

// RunNow refreshes every pair once and returns how many succeeded.
func (w *Warmer) RunNow() int {
	if w.lock != nil {
		held, err := w.lock.TryLock(w.ctx, lockKey, w.lockTTL)
		if err != nil {
			w.l.Warn("forecast warm-up lock", logger.Error(err))
			return 0
		}
		if !held {
			w.l.Info("forecast warm-up skipped, lock held elsewhere")
			return 0
		}
		defer func() {
			if err := w.lock.Unlock(context.Background(), lockKey); err != nil {
				w.l.Warn("forecast warm-up unlock", logger.Error(err))
			}
		}()
	}

	ok := 0
	for _, p := range w.pairs {
		if w.ctx.Err() != nil {
			break
		}
		if err := w.refresh(p); err != nil {
			w.l.Warn("forecast warm-up failed", logger.String("pair", p.Key()), logger.Error(err))
			continue
		}
		ok++
	}
	w.l.Info("forecast warm-up done", logger.Int("ok", ok), logger.Int("pairs", len(w.pairs)))
	return ok
}

func (w *Warmer) refresh(p models.CurrencyPair) error {
	ctx := w.ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.svc.Invalidate(ctx, p.Base, p.Quote); err != nil {
		return err
	}
	_, err := w.svc.ForecastMonthly(ctx, p.Base, p.Quote, w.months)
	return err
}
