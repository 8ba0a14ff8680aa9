package retry

import (
	"context"
	"testing"
	"time"
)

func TestExponentialBackoffDoubling(t *testing.T) {
	eb := NewExponentialBackoff(time.Second)

	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, c := range cases {
		if got := eb.NextDelay(c.retry); got != c.want {
			t.Errorf("NextDelay(%d) = %v, want %v", c.retry, got, c.want)
		}
	}
}

func TestExponentialBackoffCap(t *testing.T) {
	eb := &ExponentialBackoff{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0}
	if got := eb.NextDelay(10); got != 5*time.Second {
		t.Errorf("NextDelay(10) = %v, want cap %v", got, 5*time.Second)
	}
}

func TestExponentialBackoffNegativeRetry(t *testing.T) {
	eb := NewExponentialBackoff(time.Second)
	if got := eb.NextDelay(-3); got != time.Second {
		t.Errorf("NextDelay(-3) = %v, want %v", got, time.Second)
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 250 * time.Millisecond}
	for _, retry := range []int{0, 1, 5} {
		if got := cb.NextDelay(retry); got != 250*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, want 250ms", retry, got)
		}
	}
}

func TestWaitZeroDelay(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("Wait(0) took %v", elapsed)
	}
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Wait(ctx, time.Minute)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled Wait took %v", elapsed)
	}
}
