package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultCount  = 5
	DefaultPeriod = 10 * time.Second
)

// Window is a sliding-window limiter keyed by client identity. At most
// Count calls are admitted per identity in any rolling Period.
type Window struct {
	mu        sync.Mutex
	count     int
	period    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewWindow(count int, period time.Duration) *Window {
	if count <= 0 {
		count = DefaultCount
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Window{
		count:  count,
		period: period,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Admit reports whether identity is still under the limit. The call is
// recorded even when rejected, so a client retrying in a tight loop stays
// throttled.
func (w *Window) Admit(identity string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.sweep(now)

	recent := prune(w.hits[identity], now.Add(-w.period))
	admitted := len(recent) < w.count
	w.hits[identity] = append(recent, now)
	return admitted
}

// Len returns the number of identities currently tracked.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

// sweep drops identities whose newest hit is older than one period. It runs
// at most once per period. Caller holds w.mu.
func (w *Window) sweep(now time.Time) {
	if now.Sub(w.lastSweep) < w.period {
		return
	}
	w.lastSweep = now
	cutoff := now.Add(-w.period)
	for id, ts := range w.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(w.hits, id)
		}
	}
}

// prune keeps the timestamps strictly newer than cutoff. ts is ordered.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	out := make([]time.Time, len(ts)-i, len(ts)-i+1)
	copy(out, ts[i:])
	return out
}
