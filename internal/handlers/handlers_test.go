package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"

	"telegram-order-bot/internal/ingest"
	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/ratelimit"
)

var hkt = time.FixedZone("HKT", 8*3600)

// ----- Fakes -----

type fakeNotify struct {
	replies   []string
	reports   []string
	reportErr error
}

func (f *fakeNotify) SendReply(_ context.Context, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeNotify) SendToReportChannel(_ context.Context, text string) error {
	if f.reportErr != nil {
		return f.reportErr
	}
	f.reports = append(f.reports, text)
	return nil
}

type fakeIngest struct{ got []models.Inbound }

func (f *fakeIngest) Process(_ context.Context, in models.Inbound) ingest.Outcome {
	f.got = append(f.got, in)
	return ingest.Outcome{}
}

type fakeReports struct{ calls []string }

func (f *fakeReports) render(kind, key string) (string, bool) {
	f.calls = append(f.calls, kind+":"+key)
	if strings.HasPrefix(key, "99") {
		return "", false
	}
	return kind + " report " + key, true
}

func (f *fakeReports) ForDay(k string) (string, bool)      { return f.render("day", k) }
func (f *fakeReports) ForMonth(k string) (string, bool)    { return f.render("month", k) }
func (f *fakeReports) DetailDay(k string) (string, bool)   { return f.render("detail-day", k) }
func (f *fakeReports) DetailMonth(k string) (string, bool) { return f.render("detail-month", k) }

type fakeManual struct {
	userID int64
	at     time.Time
	order  models.Order
}

func (f *fakeManual) ScheduleManual(_ context.Context, userID int64, at time.Time, o models.Order) models.Reminder {
	f.userID, f.at, f.order = userID, at, o
	return models.Reminder{UserID: userID, FireAt: at}
}

type fixture struct {
	h       *Handler
	notify  *fakeNotify
	ingest  *fakeIngest
	reports *fakeReports
	manual  *fakeManual
	clock   *clockwork.FakeClock
}

func newFixture(limit int) fixture {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 12, 19, 8, 30, 0, 0, hkt))
	fx := fixture{
		notify:  &fakeNotify{},
		ingest:  &fakeIngest{},
		reports: &fakeReports{},
		manual:  &fakeManual{},
		clock:   clock,
	}
	fx.h = &Handler{
		Ingest:    fx.ingest,
		Reports:   fx.reports,
		Reminders: fx.manual,
		Notify:    fx.notify,
		Limiter:   ratelimit.New(limit, clock),
		Clock:     clock,
		Loc:       hkt,
	}
	return fx
}

func command(text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: 42, UserName: "boss"},
		Chat:      &tgbotapi.Chat{ID: -1001234567890},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func lastReply(fx fixture) string {
	if len(fx.notify.replies) == 0 {
		return ""
	}
	return fx.notify.replies[len(fx.notify.replies)-1]
}

// ----- Tests -----

func TestValidDateArg(t *testing.T) {
	for arg, want := range map[string]bool{
		"251219": true, "2512": true,
		"": false, "25121": false, "2512199": false, "25a2": false, "２５１２": false,
	} {
		if got := ValidDateArg(arg); got != want {
			t.Errorf("ValidDateArg(%q) = %v, want %v", arg, got, want)
		}
	}
}

func TestParseDelay(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"2", 2 * time.Hour, true},
		{"1 30", 90 * time.Minute, true},
		{"0 5", 5 * time.Minute, true},
		{"", 0, false},
		{"-1", 0, false},
		{"1 x", 0, false},
		{"1 2 3", 0, false},
		{"99999999", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseDelay(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseDelay(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestPermalink(t *testing.T) {
	cases := []struct {
		chat *tgbotapi.Chat
		want string
	}{
		{&tgbotapi.Chat{ID: -1001234567890}, "https://t.me/c/1234567890/7"},
		{&tgbotapi.Chat{ID: -1001234567890, UserName: "cakeshop"}, "https://t.me/cakeshop/7"},
		{&tgbotapi.Chat{ID: -42}, ""},
		{&tgbotapi.Chat{ID: 42}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := Permalink(c.chat, 7); got != c.want {
			t.Errorf("Permalink(%+v) = %q, want %q", c.chat, got, c.want)
		}
	}
}

func TestAuthorLabel(t *testing.T) {
	if got := AuthorLabel(&tgbotapi.Message{From: &tgbotapi.User{UserName: "amy"}}); got != "@amy" {
		t.Fatalf("got %q", got)
	}
	if got := AuthorLabel(&tgbotapi.Message{From: &tgbotapi.User{FirstName: "Amy", LastName: "Chan"}}); got != "Amy Chan" {
		t.Fatalf("got %q", got)
	}
	if got := AuthorLabel(&tgbotapi.Message{Chat: &tgbotapi.Chat{Title: "Orders"}}); got != "Orders" {
		t.Fatalf("got %q", got)
	}
}

func TestHandleMessage_PlainTextGoesToIngest(t *testing.T) {
	fx := newFixture(10)
	msg := &tgbotapi.Message{
		MessageID: 9,
		Date:      1766100000,
		From:      &tgbotapi.User{ID: 7, UserName: "amy"},
		Chat:      &tgbotapi.Chat{ID: -1001234567890},
		Text:      "【訂單資料】 ...",
	}
	fx.h.HandleMessage(context.Background(), msg)

	if len(fx.ingest.got) != 1 {
		t.Fatalf("ingested %d", len(fx.ingest.got))
	}
	in := fx.ingest.got[0]
	if in.AuthorID != 7 || in.Author != "@amy" || in.Permalink != "https://t.me/c/1234567890/9" {
		t.Fatalf("inbound = %+v", in)
	}
}

func TestCommand_DayAndMonthReports(t *testing.T) {
	fx := newFixture(10)
	ctx := context.Background()

	fx.h.HandleMessage(ctx, command("/c 251219"))
	fx.h.HandleMessage(ctx, command("/d 2512"))

	want := []string{"day:251219", "detail-month:2512"}
	if strings.Join(fx.reports.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", fx.reports.calls)
	}
	if len(fx.notify.reports) != 2 || lastReply(fx) != txtReportSent {
		t.Fatalf("reports = %v replies = %v", fx.notify.reports, fx.notify.replies)
	}
}

func TestCommand_InvalidAndEmpty(t *testing.T) {
	fx := newFixture(10)
	ctx := context.Background()

	fx.h.HandleMessage(ctx, command("/d 25121"))
	if got := lastReply(fx); got != "❌ Invalid format. Use /d yymmdd or /d yymm" {
		t.Fatalf("reply = %q", got)
	}
	if len(fx.reports.calls) != 0 {
		t.Fatal("report rendered for invalid argument")
	}

	fx.h.HandleMessage(ctx, command("/c 990101"))
	if lastReply(fx) != "❌ No orders found for 990101" {
		t.Fatalf("reply = %q", lastReply(fx))
	}
	if len(fx.notify.reports) != 0 {
		t.Fatal("empty report posted")
	}
}

func TestCommand_ReportChannelFailure(t *testing.T) {
	fx := newFixture(10)
	fx.notify.reportErr = errors.New("chat not found")
	fx.h.HandleMessage(context.Background(), command("/c 251219"))
	if lastReply(fx) != txtReportFailed {
		t.Fatalf("reply = %q", lastReply(fx))
	}
}

func TestCommand_Today(t *testing.T) {
	fx := newFixture(10)
	fx.h.HandleMessage(context.Background(), command("/tdy"))
	if len(fx.reports.calls) != 1 || fx.reports.calls[0] != "day:251219" {
		t.Fatalf("calls = %v", fx.reports.calls)
	}
	if lastReply(fx) != txtTodaySent {
		t.Fatalf("reply = %q", lastReply(fx))
	}
}

func TestCommand_Time(t *testing.T) {
	fx := newFixture(10)
	ctx := context.Background()

	fx.h.HandleMessage(ctx, command("/time 2"))
	if lastReply(fx) != txtNeedReply {
		t.Fatalf("reply = %q", lastReply(fx))
	}

	msg := command("/time 1 30")
	msg.ReplyToMessage = &tgbotapi.Message{
		MessageID: 3,
		From:      &tgbotapi.User{ID: 7, UserName: "amy"},
		Chat:      msg.Chat,
		Text:      "【訂單資料】\n聯絡人電話： 555\n交收方式： 旺角",
	}
	fx.h.HandleMessage(ctx, msg)

	wantAt := fx.clock.Now().Add(90 * time.Minute)
	if fx.manual.userID != 42 || !fx.manual.at.Equal(wantAt) {
		t.Fatalf("scheduled for %d at %v", fx.manual.userID, fx.manual.at)
	}
	o := fx.manual.order
	if o.Phone != "555" || o.DealMethod != "旺角" || o.Author != "@amy" || o.Permalink != "https://t.me/c/1234567890/3" {
		t.Fatalf("order = %+v", o)
	}
	if lastReply(fx) != "✅ Reminder set for 2025-12-19 10:00" {
		t.Fatalf("reply = %q", lastReply(fx))
	}
}

func TestCommand_RateLimited(t *testing.T) {
	fx := newFixture(2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		fx.h.HandleMessage(ctx, command("/c 251219"))
	}
	if len(fx.reports.calls) != 2 {
		t.Fatalf("rendered %d reports, want 2", len(fx.reports.calls))
	}
	if lastReply(fx) != txtRateLimited {
		t.Fatalf("reply = %q", lastReply(fx))
	}
}

func TestCommand_UnknownIgnored(t *testing.T) {
	fx := newFixture(10)
	fx.h.HandleMessage(context.Background(), command("/settings"))
	if len(fx.notify.replies) != 0 || len(fx.ingest.got) != 0 {
		t.Fatal("unknown command produced output")
	}
}

func TestHandleUpdate_RecoversPanic(t *testing.T) {
	fx := newFixture(10)
	fx.h.Ingest = nil // nil interface call panics
	fx.h.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hi"},
	})
}
