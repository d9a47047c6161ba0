package edgar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	manual bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func (c *fakeClock) totalSlept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.slept {
		total += d
	}
	return total
}

func newTestWindow(clock *fakeClock, perSecond int, buffer time.Duration) *SlidingWindow {
	return NewSlidingWindow(perSecond, WithBuffer(buffer), WithClock(clock.Now, clock.Sleep))
}

func TestSlidingWindowNoDelayBelowCap(t *testing.T) {
	for _, n := range []int{0, 1, 5, 10} {
		clock := newFakeClock()
		limiter := newTestWindow(clock, 10, 100*time.Millisecond)

		for i := 0; i < n; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("wait %d: %v", i, err)
			}
		}
		if total := clock.totalSlept(); total != 0 {
			t.Errorf("%d calls: expected no delay, slept %v", n, total)
		}
	}
}

func TestSlidingWindowDelaysCallAboveCap(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestWindow(clock, 10, 100*time.Millisecond)

	for i := 0; i < 10; i++ {
		_ = limiter.Wait(context.Background())
		clock.Advance(10 * time.Millisecond)
	}
	// first call was 100ms ago
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := 900*time.Millisecond + 100*time.Millisecond
	if got := clock.totalSlept(); got != want {
		t.Errorf("expected wait %v, got %v", want, got)
	}
}

func TestSlidingWindowNoDelayWhenSpreadOut(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestWindow(clock, 3, 100*time.Millisecond)

	for i := 0; i < 20; i++ {
		_ = limiter.Wait(context.Background())
		clock.Advance(400 * time.Millisecond)
	}
	if total := clock.totalSlept(); total != 0 {
		t.Errorf("expected no delay, slept %v", total)
	}
}

func TestSlidingWindowProperty(t *testing.T) {
	const perSecond = 10
	clock := newFakeClock()
	limiter := newTestWindow(clock, perSecond, 100*time.Millisecond)

	gaps := []time.Duration{0, 5 * time.Millisecond, 0, 50 * time.Millisecond, 300 * time.Millisecond, 0, 1 * time.Millisecond}
	var released []time.Time
	for i := 0; i < 200; i++ {
		clock.Advance(gaps[i%len(gaps)])
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		released = append(released, clock.Now())
	}

	for i := perSecond; i < len(released); i++ {
		if span := released[i].Sub(released[i-perSecond]); span < time.Second {
			t.Fatalf("calls %d..%d released within %v", i-perSecond, i, span)
		}
	}
}

func TestSlidingWindowConcurrentCallers(t *testing.T) {
	const perSecond = 5
	clock := newFakeClock()
	limiter := NewSlidingWindow(perSecond, WithBuffer(0), WithClock(clock.Now, func(ctx context.Context, d time.Duration) error {
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limiter.Wait(context.Background())
		}()
	}
	wg.Wait()

	// reserved release times must respect the window even though nobody slept
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.history) != 25 {
		t.Fatalf("expected 25 pending reservations, got %d", len(limiter.history))
	}
	last := limiter.history[len(limiter.history)-1]
	if want := clock.Now().Add(4 * time.Second); last.Before(want) {
		t.Errorf("expected last release at or after %v, got %v", want, last)
	}
}

func TestSlidingWindowContextCanceled(t *testing.T) {
	limiter := NewSlidingWindow(1, WithBuffer(0))
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSlidingWindowCanceledWaitReleasesSlot(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestWindow(clock, 1, 100*time.Millisecond)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}

	clock.Advance(1500 * time.Millisecond)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if total := clock.totalSlept(); total != 0 {
		t.Errorf("expected canceled wait to free its slot, slept %v", total)
	}
}

func TestSlidingWindowCanceledWaitKeepsEarlierCalls(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestWindow(clock, 1, 100*time.Millisecond)

	_ = limiter.Wait(context.Background())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_ = limiter.Wait(canceled)

	clock.Advance(500 * time.Millisecond)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if want, got := 600*time.Millisecond, clock.totalSlept(); got != want {
		t.Errorf("expected wait %v after the first call, got %v", want, got)
	}
}

func TestSlidingWindowDropsStaleHistory(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestWindow(clock, 3, 0)

	for i := 0; i < 10; i++ {
		_ = limiter.Wait(context.Background())
		clock.Advance(2 * time.Second)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.history) != 1 {
		t.Errorf("expected only the latest call kept, got %d", len(limiter.history))
	}
}

func TestNewSlidingWindowMinimumRate(t *testing.T) {
	limiter := NewSlidingWindow(0)
	if limiter.perSecond != 1 {
		t.Errorf("expected perSecond clamped to 1, got %d", limiter.perSecond)
	}
}
