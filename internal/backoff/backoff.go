// Package backoff paces reconnect attempts for the live feed transports.
package backoff

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Backoff doubles its delay after every failure, capped at Max.
// Start at 200ms and cap at 5s unless configured otherwise.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Clock   clockwork.Clock

	current time.Duration
}

// New returns a Backoff with the default 200ms..5s range on the real clock.
func New() *Backoff {
	return &Backoff{Initial: 200 * time.Millisecond, Max: 5 * time.Second}
}

// Reset returns the delay to Initial after a successful attempt.
func (b *Backoff) Reset() {
	b.current = 0
}

// Next returns the delay to wait before the next attempt and advances it.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Initial
		return b.current
	}
	b.current = nextBackoff(b.current, b.Max)
	return b.current
}

// Wait sleeps for the next delay. Returns false if ctx was cancelled first.
func (b *Backoff) Wait(ctx context.Context) bool {
	return sleepWithContext(ctx, b.clock(), b.Next())
}

func (b *Backoff) clock() clockwork.Clock {
	if b.Clock == nil {
		return clockwork.NewRealClock()
	}
	return b.Clock
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
