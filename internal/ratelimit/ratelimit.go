// Package ratelimit bounds how often a single user may run bot commands.
//
// Each user has a sliding one-minute window of accepted call times. A call is
// rejected when the window already holds the configured number of entries.
// Idle users are dropped opportunistically to keep the map bounded.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultLimit = 10
	Window       = time.Minute

	gcEvery = 1000
)

type Limiter struct {
	limit int
	clock clockwork.Clock

	mu       sync.Mutex
	calls    map[int64][]time.Time
	cleanupN int
}

// New returns a limiter allowing limit calls per user per minute. limit <= 0
// falls back to DefaultLimit; a nil clock means wall time.
func New(limit int, clock clockwork.Clock) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		limit: limit,
		clock: clock,
		calls: make(map[int64][]time.Time),
	}
}

// Allow records a call for userID and reports whether it is within the limit.
// Rejected calls are not recorded.
func (l *Limiter) Allow(userID int64) bool {
	now := l.clock.Now()
	cutoff := now.Add(-Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupN++
	if l.cleanupN >= gcEvery {
		for id, ts := range l.calls {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(l.calls, id)
			}
		}
		l.cleanupN = 0
	}

	recent := trim(l.calls[userID], cutoff)
	if len(recent) >= l.limit {
		l.calls[userID] = recent
		return false
	}
	l.calls[userID] = append(recent, now)
	return true
}

// trim drops timestamps at or before cutoff. ts is ascending.
func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
