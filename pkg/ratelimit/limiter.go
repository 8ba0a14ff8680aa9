package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces outbound requests.
type Limiter interface {
	// Wait blocks until the limiter grants a slot, or the context ends.
	Wait(ctx context.Context) error
	// Reset clears the limiter state.
	Reset()
}

// IntervalLimiter enforces a minimum randomized spacing between granted
// slots: at least Min since the previous slot, plus a random extra amount
// up to Max-Min. One instance is shared by everything using the same
// transport, so the whole process is paced as a single client.
type IntervalLimiter struct {
	min  time.Duration
	max  time.Duration
	last time.Time
	mu   sync.Mutex
}

// NewIntervalLimiter creates a limiter for the given spacing window.
// Max below Min is clamped to Min.
func NewIntervalLimiter(min, max time.Duration) *IntervalLimiter {
	if max < min {
		max = min
	}
	return &IntervalLimiter{min: min, max: max}
}

// Wait blocks the caller until the spacing contract is satisfied, then
// records the grant. The mutex is held across the sleep on purpose:
// concurrent callers are serialized through one pacing point.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		elapsed := time.Since(l.last)
		if elapsed < l.min {
			target := l.min
			if span := l.max - l.min; span > 0 {
				target += time.Duration(rand.Int63n(int64(span) + 1))
			}
			if err := sleep(ctx, target-elapsed); err != nil {
				return err
			}
		}
	}

	l.last = time.Now()
	return nil
}

// Reset clears the last-granted timestamp, so the next Wait returns
// immediately.
func (l *IntervalLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = time.Time{}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
