package ratelimit

import (
	"context"
	"sync"
	"time"
)

// counter is the per-key window state. Bucket indices are wall-clock:
// the Unix second and the Unix minute of the last request seen.
type counter struct {
	secBucket int64
	secCount  int
	minBucket int64
	minCount  int
}

// MemoryLimiter keeps all counters in one map behind a single mutex.
// Counters are created lazily on a key's first request and evicted once
// their minute bucket goes stale, so memory stays bounded no matter how
// many distinct keys show up.
type MemoryLimiter struct {
	cfg Config
	now func() time.Time

	mu   sync.Mutex
	data map[string]*counter

	maxKeys int
	done    chan struct{}
	once    sync.Once
}

// staleAfter is how long a counter may sit idle before the janitor
// drops it. Anything past its minute window is dead weight.
const staleAfter = 5 * time.Minute

// janitorInterval is how often idle counters are swept.
const janitorInterval = time.Minute

// MemoryLimiterOption customizes a MemoryLimiter.
type MemoryLimiterOption func(*MemoryLimiter)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) MemoryLimiterOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// WithMaxKeys caps the number of tracked keys before an inline sweep is
// forced.
func WithMaxKeys(n int) MemoryLimiterOption {
	return func(l *MemoryLimiter) { l.maxKeys = n }
}

// NewMemoryLimiter builds the in-process limiter and starts its
// background janitor. Call Close to stop the janitor.
func NewMemoryLimiter(cfg Config, opts ...MemoryLimiterOption) *MemoryLimiter {
	l := &MemoryLimiter{
		cfg:     cfg,
		now:     time.Now,
		data:    make(map[string]*counter),
		maxKeys: 100000,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.janitor()
	return l
}

// Admit applies the dual-window policy for one request. The whole
// read-reset-check-increment sequence runs under the lock; the caller
// must not still be inside Admit when it starts upstream I/O.
func (l *MemoryLimiter) Admit(_ context.Context, key string) (Decision, error) {
	now := l.now()
	sec := now.Unix()
	min := sec / 60

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.data[key]
	if !ok {
		if len(l.data) >= l.maxKeys {
			l.sweep(min)
		}
		c = &counter{secBucket: sec, minBucket: min}
		l.data[key] = c
	}

	// Crossing a boundary resets that window's count.
	if c.secBucket != sec {
		c.secBucket = sec
		c.secCount = 0
	}
	if c.minBucket != min {
		c.minBucket = min
		c.minCount = 0
	}

	secondExceeded := c.secCount >= l.cfg.MaxPerSecond
	minuteExceeded := c.minCount >= l.cfg.MaxPerMinute
	if secondExceeded || minuteExceeded {
		return Decision{
			Allowed:         false,
			RetryAfter:      retryAfter(now, secondExceeded, minuteExceeded),
			SecondRemaining: l.cfg.MaxPerSecond - c.secCount,
			MinuteRemaining: l.cfg.MaxPerMinute - c.minCount,
		}, nil
	}

	c.secCount++
	c.minCount++
	return Decision{
		Allowed:         true,
		SecondRemaining: l.cfg.MaxPerSecond - c.secCount,
		MinuteRemaining: l.cfg.MaxPerMinute - c.minCount,
	}, nil
}

// sweep drops counters whose minute bucket is stale. Caller holds the
// lock.
func (l *MemoryLimiter) sweep(nowMinute int64) {
	staleMinutes := int64(staleAfter / time.Minute)
	for key, c := range l.data {
		if nowMinute-c.minBucket > staleMinutes {
			delete(l.data, key)
		}
	}
}

func (l *MemoryLimiter) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			l.sweep(l.now().Unix() / 60)
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// Close stops the background janitor.
func (l *MemoryLimiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// tracked reports how many keys currently hold counters. Test hook.
func (l *MemoryLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data)
}
