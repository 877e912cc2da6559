package chatapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// gcThreshold is the map size past which Allow sweeps idle keys.
const gcThreshold = 4096

type keyEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter gates an operation per key: at most limit events per window.
//
// Keys are lazily created and swept once idle for a full window, so a churn
// of one-shot clients cannot grow the map without bound.
type KeyedLimiter struct {
	mu     sync.Mutex
	m      map[string]*keyEntry
	limit  rate.Limit
	burst  int
	window time.Duration
}

// NewKeyedLimiter constructs a limiter allowing limit events per window per
// key, with safe defaults when inputs are invalid.
func NewKeyedLimiter(limit int, window time.Duration) *KeyedLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &KeyedLimiter{
		m:      make(map[string]*keyEntry),
		limit:  rate.Every(window / time.Duration(limit)),
		burst:  limit,
		window: window,
	}
}

// Allow reports whether an event for key at time now should be permitted.
func (l *KeyedLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &keyEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = e
	}
	e.lastSeen = now
	if len(l.m) > gcThreshold {
		l.sweepLocked(now)
	}
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

func (l *KeyedLimiter) sweepLocked(now time.Time) {
	cut := now.Add(-l.window)
	for k, e := range l.m {
		if e.lastSeen.Before(cut) {
			delete(l.m, k)
		}
	}
}
