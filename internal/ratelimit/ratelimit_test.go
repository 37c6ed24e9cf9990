package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestAllow_CeilingPerUser(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(3, clock)

	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("call %d rejected", i)
		}
	}
	if l.Allow(1) {
		t.Fatal("4th call within the window allowed")
	}
	if !l.Allow(2) {
		t.Fatal("other user affected by user 1's window")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(2, clock)

	l.Allow(1)
	clock.Advance(30 * time.Second)
	l.Allow(1)
	if l.Allow(1) {
		t.Fatal("expected rejection at the ceiling")
	}

	// the first call leaves the window, the second is still in it
	clock.Advance(31 * time.Second)
	if !l.Allow(1) {
		t.Fatal("expected a slot after the oldest call expired")
	}
	if l.Allow(1) {
		t.Fatal("window should be full again")
	}
}

func TestAllow_RejectedCallsAreNotRecorded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(1, clock)

	l.Allow(1)
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		l.Allow(1)
	}
	clock.Advance(11 * time.Second) // 61s after the only accepted call
	if !l.Allow(1) {
		t.Fatal("rejected calls extended the window")
	}
}

func TestNew_DefaultLimit(t *testing.T) {
	l := New(0, nil)
	if l.limit != DefaultLimit {
		t.Fatalf("limit = %d", l.limit)
	}
}

func TestAllow_GCDropsIdleUsers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(5, clock)
	l.Allow(99)
	clock.Advance(2 * time.Minute)

	l.mu.Lock()
	l.cleanupN = gcEvery - 1
	l.mu.Unlock()
	l.Allow(1)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.calls[99]; ok {
		t.Fatal("idle user not collected")
	}
	if _, ok := l.calls[1]; !ok {
		t.Fatal("active user collected")
	}
}
