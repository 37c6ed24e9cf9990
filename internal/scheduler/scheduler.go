// Package scheduler registers the bot's background jobs: the reminder sweep,
// the cache evictor and the retry flush of unsaved reminder updates.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	JobSweep = "reminder-sweep"
	JobEvict = "cache-evict"
	JobFlush = "reminder-flush"
)

type Reminders interface {
	Sweep(ctx context.Context) int
	Flush(ctx context.Context) int
	EvictOlderThan(retention time.Duration) int
}

type Orders interface {
	EvictOlderThan(retention time.Duration) int
}

type Config struct {
	SweepInterval     time.Duration
	EvictInterval     time.Duration
	FlushInterval     time.Duration
	ReminderRetention time.Duration
	OrderRetention    time.Duration
	Clock             clockwork.Clock // nil = wall time
}

func (c *Config) defaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.EvictInterval <= 0 {
		c.EvictInterval = time.Hour
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 10 * time.Minute
	}
	if c.ReminderRetention <= 0 {
		c.ReminderRetention = 30 * 24 * time.Hour
	}
	if c.OrderRetention <= 0 {
		c.OrderRetention = 90 * 24 * time.Hour
	}
}

// Start registers the three jobs and starts the scheduler. Every job runs in
// singleton mode, so a slow sweep is never overlapped by the next tick.
func Start(ctx context.Context, cfg Config, rs Reminders, orders Orders) (gocron.Scheduler, error) {
	cfg.defaults()

	var opts []gocron.SchedulerOption
	if cfg.Clock != nil {
		opts = append(opts, gocron.WithClock(cfg.Clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	jobs := []struct {
		name  string
		every time.Duration
		task  func()
	}{
		{JobSweep, cfg.SweepInterval, func() { Sweep(ctx, rs) }},
		{JobEvict, cfg.EvictInterval, func() { Evict(rs, orders, cfg.ReminderRetention, cfg.OrderRetention) }},
		{JobFlush, cfg.FlushInterval, func() { Flush(ctx, rs) }},
	}
	for _, j := range jobs {
		if _, err := s.NewJob(
			gocron.DurationJob(j.every),
			gocron.NewTask(j.task),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}

	s.Start()
	log.Info().
		Dur("sweep", cfg.SweepInterval).
		Dur("evict", cfg.EvictInterval).
		Dur("flush", cfg.FlushInterval).
		Msg("scheduler started")
	return s, nil
}

// Sweep fires due reminders.
func Sweep(ctx context.Context, rs Reminders) int {
	n := rs.Sweep(ctx)
	if n > 0 {
		log.Info().Int("fired", n).Msg("reminder sweep")
	}
	return n
}

// Evict drops reminders and orders past their retention horizon.
func Evict(rs Reminders, orders Orders, reminderRetention, orderRetention time.Duration) (reminders, ords int) {
	reminders = rs.EvictOlderThan(reminderRetention)
	ords = orders.EvictOlderThan(orderRetention)
	if reminders > 0 || ords > 0 {
		log.Info().Int("reminders", reminders).Int("orders", ords).Msg("cache evict")
	}
	return reminders, ords
}

// Flush retries failed reminder updates.
func Flush(ctx context.Context, rs Reminders) int {
	left := rs.Flush(ctx)
	if left > 0 {
		log.Warn().Int("outstanding", left).Msg("reminder updates still unsaved")
	}
	return left
}
