// Package ingest turns an inbound order message into a cached order plus its
// reminders, and tells the command channel what happened.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-order-bot/internal/metrics"
	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/parser"
	"telegram-order-bot/internal/reminders"
)

type OrderCache interface {
	Add(ctx context.Context, o models.Order) bool
}

type ReminderScheduler interface {
	ScheduleOrder(ctx context.Context, userID int64, o models.Order, pickup time.Time) reminders.Result
}

type Replier interface {
	SendReply(ctx context.Context, text string) error
}

type Status int

const (
	StatusIgnored   Status = iota // not an order message
	StatusNoDate                  // order message without a recognizable pickup date
	StatusDuplicate               // rejected by the cache
	StatusAccepted
)

func (s Status) String() string {
	switch s {
	case StatusNoDate:
		return "no_date"
	case StatusDuplicate:
		return "duplicate"
	case StatusAccepted:
		return "accepted"
	default:
		return "ignored"
	}
}

// Outcome reports what Process did with a message.
type Outcome struct {
	Status    Status
	Order     models.Order
	Pickup    time.Time
	Reminders reminders.Result
}

type Service struct {
	orders    OrderCache
	reminders ReminderScheduler
	dates     *parser.DateParser
	replier   Replier // nil = no feedback
}

func NewService(orders OrderCache, rs ReminderScheduler, dates *parser.DateParser, replier Replier) *Service {
	return &Service{orders: orders, reminders: rs, dates: dates, replier: replier}
}

// Process runs the full pipeline for one message. It never fails: every
// problem is reported through the Outcome and a reply.
func (s *Service) Process(ctx context.Context, in models.Inbound) Outcome {
	if !parser.IsOrderMessage(in.Text) {
		return Outcome{Status: StatusIgnored}
	}

	f := parser.ExtractFields(in.Text)
	pickup, dayKey, ok := s.dates.ParsePickupDate(f.Pickup)
	if !ok {
		metrics.OrdersIngested.WithLabelValues(StatusNoDate.String()).Inc()
		log.Info().Str("permalink", in.Permalink).Str("pickup", f.Pickup).Msg("pickup date not recognized")
		detected := f.Pickup
		if detected == "" {
			detected = "(not found)"
		}
		s.reply(ctx, fmt.Sprintf("⚠️ Found %s but pickup date not recognized.\nDetected: %s", parser.LabelOrder, detected))
		return Outcome{Status: StatusNoDate}
	}

	o := models.Order{
		DayKey:      dayKey,
		Author:      in.Author,
		Permalink:   in.Permalink,
		PickupDate:  f.Pickup,
		DealMethod:  f.DealMethod,
		Phone:       f.Phone,
		Remark:      f.Remark,
		FullMessage: in.Text,
	}
	if !s.orders.Add(ctx, o) {
		metrics.OrdersIngested.WithLabelValues(StatusDuplicate.String()).Inc()
		log.Info().Str("day_key", dayKey).Str("permalink", in.Permalink).Msg("duplicate order")
		s.reply(ctx, "⚠️ Order already exists (duplicate)")
		return Outcome{Status: StatusDuplicate, Order: o, Pickup: pickup}
	}
	metrics.OrdersIngested.WithLabelValues(StatusAccepted.String()).Inc()
	log.Info().Str("day_key", dayKey).Str("permalink", in.Permalink).Str("author", in.Author).Msg("order accepted")

	res := s.reminders.ScheduleOrder(ctx, in.AuthorID, o, pickup)
	loc := s.dates.Location()
	switch {
	case !res.AdvanceAt.IsZero():
		s.reply(ctx, "✅ Reminder set for "+res.AdvanceAt.In(loc).Format("2006-01-02 15:04"))
	case res.Backfilled && res.BackfillErr != nil:
		s.reply(ctx, "❌ Pickup < 2 days, reminder could not be sent")
	case res.Backfilled:
		s.reply(ctx, "⚠️ Pickup < 2 days, reminder sent now")
	}
	if !res.SummaryAt.IsZero() {
		s.reply(ctx, "✅ Today reminder set for "+res.SummaryAt.In(loc).Format("2006-01-02"))
	}

	return Outcome{Status: StatusAccepted, Order: o, Pickup: pickup, Reminders: res}
}

func (s *Service) reply(ctx context.Context, text string) {
	if s.replier == nil {
		return
	}
	if err := s.replier.SendReply(ctx, text); err != nil {
		log.Warn().Err(err).Msg("send reply")
	}
}
