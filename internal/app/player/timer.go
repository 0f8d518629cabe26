package player

import (
	"context"
	"time"
)

// timerResolution is how often wall-clock timers check for expiry.
var timerResolution = 100 * time.Millisecond

// startWallClockTimer calls callback once duration has elapsed on the wall
// clock. The returned func cancels the timer.
func startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		endTime := toWallTime(time.Now()).Add(duration)
		ticker := time.NewTicker(timerResolution)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					if ctx.Err() != nil {
						return
					}
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime strips the monotonic clock reading so durations follow the wall clock.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
