// Package reminders owns the per-user reminder lists: creating the advance and
// day-of reminders for accepted orders, sweeping due entries, and retiring old
// ones. A reminder moves Pending → Fired exactly once; the move happens before
// delivery is attempted, so a failing notifier is never retried.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-order-bot/internal/metrics"
	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/storage"
)

// DefaultAdvance is how long before pickup the advance reminder fires.
const DefaultAdvance = 48 * time.Hour

// Store is the slice of the persistence collaborator used for reminders.
// InsertReminder must accept an ID it has already stored and only raise the
// sent flag in that case.
type Store interface {
	InsertReminder(ctx context.Context, r *models.Reminder) error
	UpdateReminder(ctx context.Context, r *models.Reminder) error
	FindAllReminders(ctx context.Context) ([]models.Reminder, error)
}

// Notifier delivers a rendered reminder to its recipients.
type Notifier interface {
	SendReminder(ctx context.Context, n Notification) error
}

type Config struct {
	// AdvanceRecipients are mentioned on advance, manual and backfill reminders.
	AdvanceRecipients []int64
	// SummaryRecipients are mentioned on day-of reminders in addition to AdvanceRecipients.
	SummaryRecipients []int64
	Advance           time.Duration
	StoreTimeout      time.Duration
}

type Scheduler struct {
	mu     sync.Mutex
	byUser map[int64][]*models.Reminder
	// dirty holds writes that have not reached the store yet, keyed by ID.
	dirty map[string]pendingWrite

	cfg      Config
	notifier Notifier
	store    Store // nil = memory only
	clock    clockwork.Clock
}

// pendingWrite is a reminder waiting for the store. insert is set when the row
// itself was never written, so the whole record has to go out.
type pendingWrite struct {
	r      models.Reminder
	insert bool
}

// New builds a scheduler. store may be nil; a nil clock means wall time.
func New(cfg Config, n Notifier, store Store, clock clockwork.Clock) *Scheduler {
	if cfg.Advance <= 0 {
		cfg.Advance = DefaultAdvance
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		byUser:   make(map[int64][]*models.Reminder),
		dirty:    make(map[string]pendingWrite),
		cfg:      cfg,
		notifier: n,
		store:    store,
		clock:    clock,
	}
}

// Result describes what ScheduleOrder did.
type Result struct {
	AdvanceAt   time.Time // zero when no advance reminder was queued
	Backfilled  bool      // advance time had passed; notified immediately instead
	BackfillErr error
	SummaryAt   time.Time // zero when pickup is not in the future
}

// ScheduleOrder derives the two reminders of an accepted order.
//
// The advance reminder is queued for pickup−Advance. When that moment has
// already passed and pickup is still ahead, the advance notification is sent
// synchronously instead and nothing is queued. The summary reminder is queued
// for pickup itself, only when pickup is in the future.
func (s *Scheduler) ScheduleOrder(ctx context.Context, userID int64, o models.Order, pickup time.Time) Result {
	var res Result
	now := s.clock.Now()

	advanceAt := pickup.Add(-s.cfg.Advance)
	switch {
	case advanceAt.After(now):
		s.add(ctx, newReminder(userID, advanceAt, o, false), "advance")
		res.AdvanceAt = advanceAt
	case pickup.After(now):
		res.Backfilled = true
		res.BackfillErr = s.backfill(ctx, o)
	}

	if pickup.After(now) {
		s.add(ctx, newReminder(userID, pickup, o, true), "summary")
		res.SummaryAt = pickup
	}
	return res
}

// ScheduleManual queues a full-message reminder for an arbitrary time.
func (s *Scheduler) ScheduleManual(ctx context.Context, userID int64, at time.Time, o models.Order) models.Reminder {
	r := newReminder(userID, at, o, false)
	s.add(ctx, r, "manual")
	return *r
}

func newReminder(userID int64, at time.Time, o models.Order, summary bool) *models.Reminder {
	return &models.Reminder{
		ID:          uuid.NewString(),
		UserID:      userID,
		FireAt:      at,
		Message:     o.FullMessage,
		Author:      o.Author,
		Permalink:   o.Permalink,
		PickupDate:  o.PickupDate,
		DealMethod:  o.DealMethod,
		Phone:       o.Phone,
		Remark:      o.Remark,
		SummaryOnly: summary,
	}
}

func (s *Scheduler) add(ctx context.Context, r *models.Reminder, kind string) {
	s.mu.Lock()
	s.byUser[r.UserID] = append(s.byUser[r.UserID], r)
	s.updateGauge()
	cp := *r
	s.mu.Unlock()

	metrics.RemindersScheduled.WithLabelValues(kind).Inc()
	log.Debug().Str("reminder_id", cp.ID).Int64("user_id", cp.UserID).
		Time("fire_at", cp.FireAt).Bool("summary", cp.SummaryOnly).Msg("reminder scheduled")

	if s.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.InsertReminder(sctx, &cp); err != nil {
		metrics.StoreErrors.WithLabelValues("insert_reminder").Inc()
		log.Warn().Err(err).Str("reminder_id", cp.ID).Msg("save reminder, queued for flush")
		s.mu.Lock()
		if _, queued := s.dirty[cp.ID]; !queued {
			s.dirty[cp.ID] = pendingWrite{r: cp, insert: true}
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) backfill(ctx context.Context, o models.Order) error {
	metrics.RemindersScheduled.WithLabelValues("backfill").Inc()
	r := newReminder(0, s.clock.Now(), o, false)
	n := Render(r, KindBackfill, s.cfg.AdvanceRecipients)
	if len(n.Recipients) == 0 {
		log.Warn().Str("permalink", o.Permalink).Msg("no reminder recipients configured, backfill skipped")
		return nil
	}
	if err := s.deliver(ctx, n); err != nil {
		log.Error().Err(err).Str("permalink", o.Permalink).Msg("backfill reminder")
		return err
	}
	return nil
}

// Sweep fires every due, unsent reminder of every user and returns how many
// were fired. The lock covers only the state transition; delivery and
// persistence happen afterwards.
func (s *Scheduler) Sweep(ctx context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	var due []models.Reminder
	for _, list := range s.byUser {
		for _, r := range list {
			if r.Sent || now.Before(r.FireAt) {
				continue
			}
			r.Sent = true
			due = append(due, *r)
		}
	}
	s.updateGauge()
	s.mu.Unlock()

	for i := range due {
		s.fire(ctx, &due[i])
	}
	return len(due)
}

func (s *Scheduler) fire(ctx context.Context, r *models.Reminder) {
	kind := KindAdvance
	recipients := s.cfg.AdvanceRecipients
	if r.SummaryOnly {
		kind = KindSummary
		recipients = append(append([]int64{}, s.cfg.AdvanceRecipients...), s.cfg.SummaryRecipients...)
	}
	n := Render(r, kind, recipients)

	switch {
	case len(n.Recipients) == 0:
		metrics.RemindersFired.WithLabelValues("skipped").Inc()
		log.Warn().Str("reminder_id", r.ID).Msg("no reminder recipients configured, marked sent")
	default:
		if err := s.deliver(ctx, n); err != nil {
			metrics.RemindersFired.WithLabelValues("failed").Inc()
			log.Error().Err(err).Str("reminder_id", r.ID).Int64("user_id", r.UserID).Msg("reminder send")
		} else {
			metrics.RemindersFired.WithLabelValues("delivered").Inc()
		}
	}
	s.persistSent(ctx, *r)
}

// deliver shields the sweep from a notifier that panics.
func (s *Scheduler) deliver(ctx context.Context, n Notification) (err error) {
	if s.notifier == nil {
		return fmt.Errorf("no notifier configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panic: %v", p)
		}
	}()
	return s.notifier.SendReminder(ctx, n)
}

func (s *Scheduler) persistSent(ctx context.Context, r models.Reminder) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	if w, ok := s.dirty[r.ID]; ok && w.insert {
		// row not written yet; the flush inserts it with the new flag
		s.dirty[r.ID] = pendingWrite{r: r, insert: true}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.UpdateReminder(sctx, &r); err != nil {
		metrics.StoreErrors.WithLabelValues("update_reminder").Inc()
		log.Warn().Err(err).Str("reminder_id", r.ID).Msg("update reminder, queued for flush")
		s.mu.Lock()
		s.dirty[r.ID] = pendingWrite{r: r, insert: errors.Is(err, storage.ErrNotFound)}
		s.mu.Unlock()
	}
}

// Flush retries the writes that failed earlier: missing rows are inserted in
// full, the rest get their sent flag updated. It returns the number still
// outstanding.
func (s *Scheduler) Flush(ctx context.Context) int {
	if s.store == nil {
		return 0
	}
	s.mu.Lock()
	pending := make([]pendingWrite, 0, len(s.dirty))
	for _, w := range s.dirty {
		pending = append(pending, w)
	}
	s.mu.Unlock()

	for _, w := range pending {
		if err := s.write(ctx, &w); err != nil {
			metrics.StoreErrors.WithLabelValues(w.op()).Inc()
			log.Debug().Err(err).Str("reminder_id", w.r.ID).Msg("flush reminder")
			continue
		}
		s.mu.Lock()
		if cur, ok := s.dirty[w.r.ID]; ok && cur.r.Sent == w.r.Sent {
			delete(s.dirty, w.r.ID)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// write pushes one pending write. An update that finds no row turns into an
// insert of the full record.
func (s *Scheduler) write(ctx context.Context, w *pendingWrite) error {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if !w.insert {
		err := s.store.UpdateReminder(sctx, &w.r)
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		w.insert = true
	}
	return s.store.InsertReminder(sctx, &w.r)
}

func (w pendingWrite) op() string {
	if w.insert {
		return "insert_reminder"
	}
	return "update_reminder"
}

// Load hydrates the lists from the store. Failures are logged only.
func (s *Scheduler) Load(ctx context.Context) int {
	if s.store == nil {
		log.Warn().Msg("reminder store not configured, running in memory only")
		return 0
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	all, err := s.store.FindAllReminders(sctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("find_reminders").Inc()
		log.Warn().Err(err).Msg("load reminders")
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range all {
		r := all[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.byUser[r.UserID] = append(s.byUser[r.UserID], &r)
	}
	s.updateGauge()
	log.Info().Int("reminders", len(all)).Msg("reminders loaded")
	return len(all)
}

// EvictOlderThan removes reminders whose fire time lies more than retention
// in the past, sent or not. The store keeps its copy; writes still queued for
// them are abandoned.
func (s *Scheduler) EvictOlderThan(retention time.Duration) int {
	cutoff := s.clock.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for uid, list := range s.byUser {
		kept := list[:0]
		for _, r := range list {
			if r.FireAt.Before(cutoff) {
				delete(s.dirty, r.ID)
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.byUser, uid)
			continue
		}
		s.byUser[uid] = kept
	}
	if removed > 0 {
		metrics.Evicted.WithLabelValues("reminders").Add(float64(removed))
		s.updateGauge()
	}
	return removed
}

// List returns a copy of userID's reminders.
func (s *Scheduler) List(userID int64) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Reminder, 0, len(s.byUser[userID]))
	for _, r := range s.byUser[userID] {
		out = append(out, *r)
	}
	return out
}

// Counts reports pending and fired totals across users.
func (s *Scheduler) Counts() (pending, fired int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

func (s *Scheduler) countsLocked() (pending, fired int) {
	for _, list := range s.byUser {
		for _, r := range list {
			if r.State() == models.StateFired {
				fired++
			} else {
				pending++
			}
		}
	}
	return pending, fired
}

func (s *Scheduler) updateGauge() {
	p, _ := s.countsLocked()
	metrics.PendingReminders.Set(float64(p))
}
