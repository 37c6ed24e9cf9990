package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-order-bot/internal/ingest"
	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/ratelimit"
)

// Updater is the part of *tgbotapi.BotAPI that feeds the update loop.
type Updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Ingester interface {
	Process(ctx context.Context, in models.Inbound) ingest.Outcome
}

type Reports interface {
	ForDay(dayKey string) (string, bool)
	ForMonth(monthKey string) (string, bool)
	DetailDay(dayKey string) (string, bool)
	DetailMonth(monthKey string) (string, bool)
}

type ManualScheduler interface {
	ScheduleManual(ctx context.Context, userID int64, at time.Time, o models.Order) models.Reminder
}

type Notifier interface {
	SendReply(ctx context.Context, text string) error
	SendToReportChannel(ctx context.Context, text string) error
}

type Handler struct {
	Bot       Updater
	Ingest    Ingester
	Reports   Reports
	Reminders ManualScheduler
	Notify    Notifier
	Limiter   *ratelimit.Limiter
	Clock     clockwork.Clock
	Loc       *time.Location
}

// Listen consumes updates until ctx is cancelled or the channel closes.
func (h *Handler) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := h.Bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			h.Bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches one update. A panic is logged and swallowed so a
// single bad message never stops the loop.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Int("update_id", upd.UpdateID).Msg("update handler panic")
		}
	}()

	switch {
	case upd.Message != nil:
		// === group / private messages ===
		h.HandleMessage(ctx, upd.Message)

	case upd.ChannelPost != nil:
		// === channel posts ===
		h.HandleMessage(ctx, upd.ChannelPost)
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().In(h.loc())
	}
	return h.Clock.Now().In(h.loc())
}

func (h *Handler) loc() *time.Location {
	if h.Loc == nil {
		return time.Local
	}
	return h.Loc
}

func (h *Handler) reply(ctx context.Context, text string) {
	if err := h.Notify.SendReply(ctx, text); err != nil {
		log.Warn().Err(err).Msg("send reply")
	}
}
