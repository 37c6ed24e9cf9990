package scheduler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeReminders struct {
	mu        sync.Mutex
	sweeps    int
	flushes   int
	retention time.Duration
}

func (f *fakeReminders) Sweep(context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 2
}

func (f *fakeReminders) Flush(context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return 0
}

func (f *fakeReminders) EvictOlderThan(d time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retention = d
	return 1
}

type fakeOrders struct{ retention time.Duration }

func (f *fakeOrders) EvictOlderThan(d time.Duration) int {
	f.retention = d
	return 3
}

func TestTasks(t *testing.T) {
	rs := &fakeReminders{}
	ords := &fakeOrders{}
	ctx := context.Background()

	if n := Sweep(ctx, rs); n != 2 || rs.sweeps != 1 {
		t.Fatalf("Sweep = %d, sweeps = %d", n, rs.sweeps)
	}
	r, o := Evict(rs, ords, time.Hour, 2*time.Hour)
	if r != 1 || o != 3 || rs.retention != time.Hour || ords.retention != 2*time.Hour {
		t.Fatalf("Evict = %d/%d, retention %v/%v", r, o, rs.retention, ords.retention)
	}
	if left := Flush(ctx, rs); left != 0 || rs.flushes != 1 {
		t.Fatalf("Flush = %d, flushes = %d", left, rs.flushes)
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.SweepInterval != time.Minute || c.EvictInterval != time.Hour || c.FlushInterval != 10*time.Minute {
		t.Fatalf("intervals = %+v", c)
	}
	if c.ReminderRetention != 30*24*time.Hour || c.OrderRetention != 90*24*time.Hour {
		t.Fatalf("retention = %+v", c)
	}
}

func TestStart_RegistersJobs(t *testing.T) {
	s, err := Start(context.Background(), Config{}, &fakeReminders{}, &fakeOrders{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown()

	var names []string
	for _, j := range s.Jobs() {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	want := []string{JobEvict, JobFlush, JobSweep}
	if len(names) != len(want) {
		t.Fatalf("jobs = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("jobs = %v, want %v", names, want)
		}
	}
}
