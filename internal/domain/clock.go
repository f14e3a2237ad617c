package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the package-level time source for Today.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Today returns the current UTC calendar date in DateLayout.
func Today() string {
	return DateOf(clock.Now())
}

// DateOf returns the UTC calendar date of t in DateLayout.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
