package ratelimit

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestIntervalLimiterSpacing(t *testing.T) {
	min := 30 * time.Millisecond
	max := 60 * time.Millisecond
	l := NewIntervalLimiter(min, max)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 6; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		stamps = append(stamps, time.Now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < min {
			t.Errorf("gap %d was %v, want >= %v", i, gap, min)
		}
	}
}

func TestIntervalLimiterRandomizedSequences(t *testing.T) {
	// Property: for any min <= max, consecutive grants are at least min apart.
	rng := rand.New(rand.NewSource(1))
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		min := time.Duration(5+rng.Intn(20)) * time.Millisecond
		max := min + time.Duration(rng.Intn(20))*time.Millisecond
		l := NewIntervalLimiter(min, max)

		var prev time.Time
		for i := 0; i < 4; i++ {
			if err := l.Wait(ctx); err != nil {
				t.Fatalf("Wait failed: %v", err)
			}
			now := time.Now()
			if !prev.IsZero() && now.Sub(prev) < min {
				t.Errorf("round %d: gap %v below min %v", round, now.Sub(prev), min)
			}
			prev = now
		}
	}
}

func TestIntervalLimiterFirstCallImmediate(t *testing.T) {
	l := NewIntervalLimiter(time.Second, 2*time.Second)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first Wait took %v, want immediate", elapsed)
	}
}

func TestIntervalLimiterNoDelayAfterIdle(t *testing.T) {
	l := NewIntervalLimiter(20*time.Millisecond, 30*time.Millisecond)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("Wait after idle period took %v, want immediate", elapsed)
	}
}

func TestIntervalLimiterContextCancel(t *testing.T) {
	l := NewIntervalLimiter(500*time.Millisecond, 500*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := l.Wait(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIntervalLimiterConcurrentCallers(t *testing.T) {
	min := 15 * time.Millisecond
	l := NewIntervalLimiter(min, min)
	ctx := context.Background()

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Wait(ctx); err != nil {
				t.Errorf("Wait failed: %v", err)
				return
			}
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < min-2*time.Millisecond {
			t.Errorf("concurrent gap %v below min %v", gap, min)
		}
	}
}

func TestIntervalLimiterReset(t *testing.T) {
	l := NewIntervalLimiter(time.Second, time.Second)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	l.Reset()

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Wait after Reset took %v, want immediate", elapsed)
	}
}
