// Package ratelimit is a per-key token bucket limiter with an echo middleware.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "TravelFX/pkg/http"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// sweepEvery bounds how often Allow scans for idle buckets.
const sweepEvery = time.Minute

type Limiter struct {
	mu        sync.Mutex
	m         map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket), now: time.Now} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len reports how many clients currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// sweep drops buckets that have refilled to capacity. A full bucket behaves
// exactly like a new one, so dropping it never changes a decision.
func (l *Limiter) sweep(now time.Time) {
	l.lastSweep = now
	for key, b := range l.m {
		b.refill(now)
		if b.tokens >= b.capacity {
			delete(l.m, key)
		}
	}
}

func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.last = now
	}
}

// Middleware limits each client IP to burst requests, refilled at perSecond.
// Rejected requests get 429 with a Retry-After hint.
func Middleware(l *Limiter, burst, perSecond float64) echo.MiddlewareFunc {
	retryAfter := 1
	if perSecond > 0 {
		retryAfter = int(math.Ceil(1 / perSecond))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(c.RealIP(), burst, perSecond) {
				return next(c)
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded").
				RetryAfter(retryAfter))
		}
	}
}
