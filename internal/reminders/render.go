package reminders

import (
	"strings"

	"telegram-order-bot/internal/models"
)

type Kind string

const (
	KindAdvance  Kind = "advance"
	KindSummary  Kind = "summary"
	KindBackfill Kind = "backfill"
)

// maxBodyRunes caps the quoted order text in a reminder.
const maxBodyRunes = 1024

// Notification is a reminder rendered for the notifier.
type Notification struct {
	Kind       Kind
	Recipients []int64
	Title      string
	Body       string
	Author     string
	Permalink  string
}

// Render builds the notification for r. Summary reminders carry only the
// pickup essentials; the others quote the original message.
func Render(r *models.Reminder, kind Kind, recipients []int64) Notification {
	n := Notification{
		Kind:       kind,
		Recipients: recipients,
		Author:     r.Author,
		Permalink:  r.Permalink,
	}
	switch kind {
	case KindSummary:
		n.Title = "⏰ Reminder Time!"
		n.Body = summaryBody(r)
	case KindBackfill:
		n.Title = "⏰ Reminder (Auto, <2 days)"
		n.Body = clip(r.Message, maxBodyRunes)
	default:
		n.Title = "⏰ Reminder Time!"
		n.Body = clip(r.Message, maxBodyRunes)
	}
	return n
}

func summaryBody(r *models.Reminder) string {
	var b strings.Builder
	b.WriteString("Today's Pickup:\n")
	if r.Phone != "" {
		b.WriteString("📞 " + r.Phone + "\n")
	}
	if r.DealMethod != "" {
		b.WriteString("📍 " + r.DealMethod + "\n")
	}
	if r.Remark != "" {
		b.WriteString("📝 " + r.Remark)
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
