// Package messages delivers bot output to the configured Telegram chats:
// reminders, command-channel replies and report text.
package messages

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"telegram-order-bot/internal/reminders"
)

// MaxMessageRunes stays under Telegram's 4096 character message limit.
const MaxMessageRunes = 4000

// ErrNoChat is returned when the target chat for a message is not configured.
var ErrNoChat = errors.New("messages: chat not configured")

// Sender is the part of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Chats are the destination chat ids. Zero means "not configured".
type Chats struct {
	Reminder      int64 // advance, manual and backfill reminders
	TodayReminder int64 // day-of summary reminders; falls back to Reminder
	Command       int64 // replies to commands and ingestion feedback
	Report        int64 // report output
}

type Notifier struct {
	bot     Sender
	chats   Chats
	limiter *rate.Limiter
}

// NewNotifier throttles all sends to rps messages per second.
func NewNotifier(bot Sender, chats Chats, rps float64) *Notifier {
	if rps <= 0 {
		rps = 20
	}
	return &Notifier{
		bot:     bot,
		chats:   chats,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// SendReminder renders n as HTML and posts it to the reminder chat, or the
// today-reminder chat for summaries.
func (n *Notifier) SendReminder(ctx context.Context, nt reminders.Notification) error {
	chatID := n.chats.Reminder
	if nt.Kind == reminders.KindSummary && n.chats.TodayReminder != 0 {
		chatID = n.chats.TodayReminder
	}
	return n.send(ctx, chatID, FormatReminder(nt), tgbotapi.ModeHTML)
}

// SendReply posts plain text to the command chat.
func (n *Notifier) SendReply(ctx context.Context, text string) error {
	return n.send(ctx, n.chats.Command, text, "")
}

// SendToReportChannel posts text to the report chat, split into chunks that
// fit a single message. It stops at the first failed chunk.
func (n *Notifier) SendToReportChannel(ctx context.Context, text string) error {
	for _, part := range Chunk(text, MaxMessageRunes) {
		if err := n.send(ctx, n.chats.Report, part, ""); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, chatID int64, text, mode string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttle: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = mode
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// FormatReminder renders a notification as Telegram HTML with a mention for
// every recipient.
func FormatReminder(nt reminders.Notification) string {
	var b strings.Builder
	for i, id := range nt.Recipients {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, `<a href="tg://user?id=%d">%d</a>`, id, id)
	}
	if len(nt.Recipients) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString("<b>" + html.EscapeString(nt.Title) + "</b>\n")
	if nt.Author != "" {
		b.WriteString("<i>From: " + html.EscapeString(nt.Author) + "</i>\n")
	}
	b.WriteString(html.EscapeString(nt.Body))
	if nt.Permalink != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">View</a>", html.EscapeString(nt.Permalink))
	}
	return b.String()
}

// Chunk splits text on line boundaries into parts of at most limit runes.
// A single line longer than limit is cut hard.
func Chunk(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		size  int
	)
	flush := func() {
		if size > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			size = 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
		}
		n := utf8.RuneCountInString(line)
		sep := 0
		if size > 0 {
			sep = 1
		}
		if size+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		size += sep + n
	}
	flush()
	return parts
}
