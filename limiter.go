package edgar

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the EDGAR fair access limit
	DefaultRequestsPerSecond = 10
	// DefaultBuffer is added on top of every computed wait
	DefaultBuffer = 100 * time.Millisecond
)

// Limiter delays a caller until a request may be sent
type Limiter interface {
	Wait(ctx context.Context) error
}

// SlidingWindow allows at most perSecond requests in any rolling one second window.
// It looks back exactly perSecond requests, so bursts below the cap are never delayed.
type SlidingWindow struct {
	mu        sync.Mutex
	perSecond int
	buffer    time.Duration
	history   []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// SlidingWindowOption allows for customization of the limiter
type SlidingWindowOption func(*SlidingWindow)

// WithBuffer sets the extra delay added to every non-zero wait
func WithBuffer(buffer time.Duration) SlidingWindowOption {
	return func(l *SlidingWindow) {
		l.buffer = buffer
	}
}

// WithClock replaces the time source and the sleep function, mostly for tests
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) SlidingWindowOption {
	return func(l *SlidingWindow) {
		l.now = now
		l.sleep = sleep
	}
}

// NewSlidingWindow creates a sliding window limiter allowing perSecond requests per second
func NewSlidingWindow(perSecond int, options ...SlidingWindowOption) *SlidingWindow {
	if perSecond < 1 {
		perSecond = 1
	}
	l := &SlidingWindow{
		perSecond: perSecond,
		buffer:    DefaultBuffer,
		history:   make([]time.Time, 0, perSecond),
		now:       time.Now,
		sleep:     sleepContext,
	}

	for _, option := range options {
		option(l)
	}
	return l
}

// Wait blocks until the request may proceed or ctx is done.
// A caller that gives up returns its reserved slot.
func (l *SlidingWindow) Wait(ctx context.Context) error {
	at, wait := l.reserve()
	if err := l.sleep(ctx, wait); err != nil {
		l.release(at)
		return err
	}
	return nil
}

// reserve records the release time of the next request and returns it with how long to wait.
// The append and the look back happen under one lock so concurrent callers keep the window.
func (l *SlidingWindow) reserve() (time.Time, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// entries a second old can no longer delay anyone
	drop := 0
	for drop < len(l.history) && now.Sub(l.history[drop]) >= time.Second {
		drop++
	}
	l.history = append(l.history[:0], l.history[drop:]...)

	var wait time.Duration
	if len(l.history) >= l.perSecond {
		elapsed := now.Sub(l.history[len(l.history)-l.perSecond])
		if elapsed < time.Second {
			wait = time.Second - elapsed + l.buffer
		}
	}

	at := now.Add(wait)
	l.history = append(l.history, at)
	return at, wait
}

// release forgets a reservation whose request was never sent
func (l *SlidingWindow) release(at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.history) - 1; i >= 0; i-- {
		if l.history[i].Equal(at) {
			l.history = append(l.history[:i], l.history[i+1:]...)
			return
		}
	}
}

// NewTokenBucket returns a token bucket limiter with a burst of perSecond
func NewTokenBucket(perSecond int) Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
