package field

import "time"

// easeOutBack decelerates into the target with a slight overshoot.
func easeOutBack(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	u := t - 1
	return 1 + c3*u*u*u + c1*u*u
}

// tween animates a node's displayed radius from 0 to its target.
type tween struct {
	start    time.Time
	duration time.Duration
}

// progress returns the eased fraction at now and whether the tween is done.
func (tw tween) progress(now time.Time) (float64, bool) {
	if tw.duration <= 0 {
		return 1, true
	}
	t := float64(now.Sub(tw.start)) / float64(tw.duration)
	switch {
	case t <= 0:
		return 0, false
	case t >= 1:
		return 1, true
	}
	return easeOutBack(t), false
}
