package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"telegram-order-bot/internal/metrics"
	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/parser"
)

// maxManualDelay bounds /time so the fire time cannot overflow.
const maxManualDelay = 365 * 24 * time.Hour

func (h *Handler) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	switch cmd {
	case "d", "c", "tdy", "time", "help", "start":
	default:
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(senderID(msg)) {
		metrics.Commands.WithLabelValues(cmd, "rate_limited").Inc()
		h.reply(ctx, txtRateLimited)
		return
	}

	var result string
	switch cmd {
	case "d":
		result = h.HandleReport(ctx, cmd, msg.CommandArguments(), h.Reports.DetailDay, h.Reports.DetailMonth)
	case "c":
		result = h.HandleReport(ctx, cmd, msg.CommandArguments(), h.Reports.ForDay, h.Reports.ForMonth)
	case "tdy":
		result = h.HandleToday(ctx)
	case "time":
		result = h.HandleTime(ctx, msg)
	default:
		h.reply(ctx, txtHelp)
		result = "ok"
	}
	metrics.Commands.WithLabelValues(cmd, result).Inc()
	log.Debug().Str("command", cmd).Str("result", result).Int64("user_id", senderID(msg)).Msg("command")
}

// ---------------- /d, /c --------------------

type reportFunc func(key string) (string, bool)

// HandleReport validates the day or month argument and posts the matching
// report to the report channel.
func (h *Handler) HandleReport(ctx context.Context, cmd, arg string, day, month reportFunc) string {
	arg = strings.TrimSpace(arg)
	if !ValidDateArg(arg) {
		h.reply(ctx, fmt.Sprintf(txtInvalidDate, cmd, cmd))
		return "invalid"
	}

	render := day
	if len(arg) == 4 {
		render = month
	}
	text, ok := render(arg)
	if !ok {
		h.reply(ctx, fmt.Sprintf(txtNoOrders, arg))
		return "empty"
	}
	return h.publish(ctx, text, txtReportSent)
}

// ---------------- /tdy ----------------------

func (h *Handler) HandleToday(ctx context.Context) string {
	now := h.now()
	text, ok := h.Reports.ForDay(parser.DayKey(now))
	if !ok {
		h.reply(ctx, fmt.Sprintf(txtNoOrdersToday, now.Format("2006-01-02")))
		return "empty"
	}
	return h.publish(ctx, text, txtTodaySent)
}

func (h *Handler) publish(ctx context.Context, text, done string) string {
	if err := h.Notify.SendToReportChannel(ctx, text); err != nil {
		log.Warn().Err(err).Msg("send report")
		h.reply(ctx, txtReportFailed)
		return "failed"
	}
	h.reply(ctx, done)
	return "ok"
}

// ---------------- /time ---------------------

// HandleTime schedules a reminder for the replied-to message.
func (h *Handler) HandleTime(ctx context.Context, msg *tgbotapi.Message) string {
	target := msg.ReplyToMessage
	if target == nil {
		h.reply(ctx, txtNeedReply)
		return "invalid"
	}
	delay, ok := ParseDelay(msg.CommandArguments())
	if !ok {
		h.reply(ctx, txtTimeUsage)
		return "invalid"
	}

	in := Inbound(target)
	f := parser.ExtractFields(in.Text)
	at := h.now().Add(delay)
	h.Reminders.ScheduleManual(ctx, senderID(msg), at, models.Order{
		Author:      in.Author,
		Permalink:   in.Permalink,
		PickupDate:  f.Pickup,
		DealMethod:  f.DealMethod,
		Phone:       f.Phone,
		Remark:      f.Remark,
		FullMessage: in.Text,
	})
	h.reply(ctx, fmt.Sprintf(txtReminderSet, at.Format("2006-01-02 15:04")))
	return "ok"
}

// ---------------- helpers -------------------

// ValidDateArg accepts a 6-digit day-key or a 4-digit month-key.
func ValidDateArg(arg string) bool {
	if len(arg) != 4 && len(arg) != 6 {
		return false
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseDelay reads "<hours> [minutes]" as a non-negative duration.
func ParseDelay(args string) (time.Duration, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(fields[0])
	if err != nil || hours < 0 {
		return 0, false
	}
	minutes := 0
	if len(fields) == 2 {
		if minutes, err = strconv.Atoi(fields[1]); err != nil || minutes < 0 {
			return 0, false
		}
	}
	if hours > int(maxManualDelay/time.Hour) || minutes > int(maxManualDelay/time.Minute) {
		return 0, false
	}
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if d > maxManualDelay {
		return 0, false
	}
	return d, true
}

func senderID(msg *tgbotapi.Message) int64 {
	switch {
	case msg.From != nil:
		return msg.From.ID
	case msg.SenderChat != nil:
		return msg.SenderChat.ID
	case msg.Chat != nil:
		return msg.Chat.ID
	}
	return 0
}
