package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-order-bot/internal/models"
)

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		h.HandleCommand(ctx, msg)
		return
	}
	h.HandleText(ctx, msg)
}

// HandleText hands every plain message to the order pipeline; non-order text
// is ignored there.
func (h *Handler) HandleText(ctx context.Context, msg *tgbotapi.Message) {
	in := Inbound(msg)
	if in.Text == "" {
		return
	}
	h.Ingest.Process(ctx, in)
}

// Inbound converts a Telegram message into the transport-neutral form.
func Inbound(msg *tgbotapi.Message) models.Inbound {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	in := models.Inbound{
		Text:      text,
		Author:    AuthorLabel(msg),
		Permalink: Permalink(msg.Chat, msg.MessageID),
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	switch {
	case msg.From != nil:
		in.AuthorID = msg.From.ID
	case msg.SenderChat != nil:
		in.AuthorID = msg.SenderChat.ID
	case msg.Chat != nil:
		in.AuthorID = msg.Chat.ID
	}
	return in
}

// AuthorLabel prefers @username, then the full name, then the channel
// signature or title.
func AuthorLabel(msg *tgbotapi.Message) string {
	if u := msg.From; u != nil {
		if u.UserName != "" {
			return "@" + u.UserName
		}
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if msg.AuthorSignature != "" {
		return msg.AuthorSignature
	}
	if msg.SenderChat != nil {
		return msg.SenderChat.Title
	}
	if msg.Chat != nil {
		return msg.Chat.Title
	}
	return ""
}

// Permalink builds the t.me link of a message. Public chats use their
// username; supergroups and channels use the /c/ form. Basic groups and
// private chats have no link.
func Permalink(chat *tgbotapi.Chat, messageID int) string {
	if chat == nil {
		return ""
	}
	if chat.UserName != "" {
		return fmt.Sprintf("https://t.me/%s/%d", chat.UserName, messageID)
	}
	id := strconv.FormatInt(chat.ID, 10)
	if internal, ok := strings.CutPrefix(id, "-100"); ok && internal != "" {
		return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
	}
	return ""
}
