package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a retry. The retry index is
// 0-based: NextDelay(0) is the pause between the first attempt and the
// first retry.
type BackoffStrategy interface {
	NextDelay(retry int) time.Duration
}

// ExponentialBackoff doubles the delay for each retry:
// delay(k) = BaseDelay * Multiplier^k, capped at MaxDelay.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration // 0 means uncapped
	Multiplier float64
	// JitterFactor adds +/- jitter as a fraction of the delay (0.0 to 1.0).
	JitterFactor float64
}

// NewExponentialBackoff returns the engine's standard doubling backoff
// with no jitter, so the retry schedule stays predictable.
func NewExponentialBackoff(base time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  base,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
	}
}

// NextDelay computes the delay before retry k.
func (eb *ExponentialBackoff) NextDelay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	mult := eb.Multiplier
	if mult <= 0 {
		mult = 2.0
	}

	delay := float64(eb.BaseDelay) * math.Pow(mult, float64(retry))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff waits the same amount before every retry.
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns the constant delay.
func (cb *ConstantBackoff) NextDelay(retry int) time.Duration {
	return cb.Delay
}

// Wait sleeps for the given delay or until the context is cancelled.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
