package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-order-bot/internal/reminders"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

var chats = Chats{Reminder: 10, TodayReminder: 11, Command: 12, Report: 13}

func TestSendReminder_Routing(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifier(s, chats, 1000)
	ctx := context.Background()

	if err := n.SendReminder(ctx, reminders.Notification{Kind: reminders.KindAdvance, Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := n.SendReminder(ctx, reminders.Notification{Kind: reminders.KindSummary, Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if s.sent[0].ChatID != 10 || s.sent[1].ChatID != 11 {
		t.Fatalf("chats = %d, %d", s.sent[0].ChatID, s.sent[1].ChatID)
	}
	if s.sent[0].ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("parse mode = %q", s.sent[0].ParseMode)
	}

	// summary falls back to the reminder chat
	n = NewNotifier(s, Chats{Reminder: 10}, 1000)
	n.SendReminder(ctx, reminders.Notification{Kind: reminders.KindSummary})
	if s.sent[2].ChatID != 10 {
		t.Fatalf("fallback chat = %d", s.sent[2].ChatID)
	}
}

func TestSend_Errors(t *testing.T) {
	n := NewNotifier(&fakeSender{}, Chats{}, 1000)
	if err := n.SendReply(context.Background(), "x"); !errors.Is(err, ErrNoChat) {
		t.Fatalf("err = %v, want ErrNoChat", err)
	}

	boom := errors.New("boom")
	n = NewNotifier(&fakeSender{err: boom}, chats, 1000)
	if err := n.SendReply(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n = NewNotifier(&fakeSender{}, chats, 0.001)
	n.limiter.Allow() // drain the single burst token
	if err := n.SendReply(ctx, "x"); err == nil {
		t.Fatal("expected throttle error on a cancelled context")
	}
}

func TestFormatReminder(t *testing.T) {
	got := FormatReminder(reminders.Notification{
		Recipients: []int64{100, 200},
		Title:      "⏰ Reminder Time!",
		Body:       "6\" cake <b>",
		Author:     "amy & co",
		Permalink:  "https://t.me/c/1/2",
	})
	for _, want := range []string{
		`<a href="tg://user?id=100">100</a> <a href="tg://user?id=200">200</a>`,
		"<b>⏰ Reminder Time!</b>",
		"From: amy &amp; co",
		"6&#34; cake &lt;b&gt;",
		`<a href="https://t.me/c/1/2">View</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
}

func TestChunk(t *testing.T) {
	if got := Chunk("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("Chunk(short) = %q", got)
	}

	got := Chunk("aa\nbb\ncc", 5)
	if strings.Join(got, "|") != "aa\nbb|cc" {
		t.Fatalf("Chunk = %q", got)
	}

	long := strings.Repeat("蛋", 25)
	got = Chunk("x\n"+long, 10)
	if got[0] != "x" {
		t.Fatalf("first chunk = %q", got[0])
	}
	for _, p := range got {
		if utf8.RuneCountInString(p) > 10 {
			t.Fatalf("chunk over limit: %q", p)
		}
	}
	if strings.Join(got[1:], "") != long {
		t.Fatal("hard-split line lost characters")
	}
}

func TestSendToReportChannel_Chunks(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifier(s, chats, 1000)
	text := strings.Repeat(strings.Repeat("a", 100)+"\n", 100)
	if err := n.SendToReportChannel(context.Background(), text); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) < 3 {
		t.Fatalf("sent %d messages, want at least 3", len(s.sent))
	}
	for _, m := range s.sent {
		if m.ChatID != 13 {
			t.Fatalf("chat = %d", m.ChatID)
		}
	}
}
