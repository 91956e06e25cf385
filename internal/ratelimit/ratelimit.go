// Package ratelimit decides whether a request identified by an opaque
// key may proceed, under two fixed windows: a per-second ceiling and a
// per-minute ceiling. Both windows must have headroom for a request to
// be admitted; admission increments both counters, rejection increments
// neither. Windows are aligned to wall-clock boundaries, so counts
// reset when the second or minute ticks over rather than decaying.
package ratelimit

import (
	"context"
	"time"
)

// Config carries the two ceilings. Both are inclusive: exactly
// MaxPerSecond requests are admitted within one second, the next one in
// the same second is rejected.
type Config struct {
	MaxPerSecond int
	MaxPerMinute int
}

// Decision is the outcome of a single admission attempt.
type Decision struct {
	Allowed bool

	// RetryAfter is how long until the nearest window boundary that
	// frees capacity. Zero when Allowed.
	RetryAfter time.Duration

	// Remaining headroom in each window after this attempt.
	SecondRemaining int
	MinuteRemaining int
}

// Limiter admits or rejects one request for a key. Implementations must
// make the check-and-increment atomic: concurrent callers for the same
// key may never jointly exceed a ceiling.
type Limiter interface {
	Admit(ctx context.Context, key string) (Decision, error)
}

// retryAfter computes the wait until the nearest boundary that frees
// capacity. When only the second window is exhausted that is the next
// second tick; an exhausted minute window dominates it.
func retryAfter(now time.Time, secondExceeded, minuteExceeded bool) time.Duration {
	var wait time.Duration
	if secondExceeded {
		wait = time.Unix(now.Unix()+1, 0).Sub(now)
	}
	if minuteExceeded {
		minute := now.Unix() / 60
		if d := time.Unix((minute+1)*60, 0).Sub(now); d > wait {
			wait = d
		}
	}
	return wait
}
