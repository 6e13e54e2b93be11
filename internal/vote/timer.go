package vote

import "time"

// CountdownTimer is polled against server time every tick. The zero value is
// an invalidated timer.
type CountdownTimer struct {
	start    time.Duration
	duration time.Duration
	started  bool
}

// Start arms the timer to elapse d after now.
func (t *CountdownTimer) Start(now, d time.Duration) {
	t.start = now
	t.duration = d
	t.started = true
}

// Expire makes an armed timer elapse at now.
func (t *CountdownTimer) Expire(now time.Duration) {
	if !t.started {
		return
	}
	t.start = now
	t.duration = 0
}

func (t *CountdownTimer) Invalidate() {
	*t = CountdownTimer{}
}

func (t *CountdownTimer) HasStarted() bool {
	return t.started
}

// IsElapsed reports whether an armed timer has run out.
func (t *CountdownTimer) IsElapsed(now time.Duration) bool {
	return t.started && now >= t.start+t.duration
}

// Remaining returns the time left, or zero for elapsed and invalid timers.
func (t *CountdownTimer) Remaining(now time.Duration) time.Duration {
	if !t.started {
		return 0
	}
	return max(t.start+t.duration-now, 0)
}
