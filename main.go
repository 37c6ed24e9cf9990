package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-order-bot/internal/config"
	"telegram-order-bot/internal/handlers"
	"telegram-order-bot/internal/ingest"
	"telegram-order-bot/internal/messages"
	"telegram-order-bot/internal/orders"
	"telegram-order-bot/internal/parser"
	"telegram-order-bot/internal/ratelimit"
	"telegram-order-bot/internal/reminders"
	"telegram-order-bot/internal/report"
	"telegram-order-bot/internal/scheduler"
	"telegram-order-bot/internal/server"
	"telegram-order-bot/internal/storage"
	"telegram-order-bot/internal/utils"
)

func main() {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN etc.
	utils.SetupLogger(os.Getenv("LOG_LEVEL"), false)

	cfg := config.MustLoad()
	utils.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	utils.Must(err)
	log.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	clock := clockwork.NewRealClock()

	// --- persistence (optional) ---
	cacheOpts := []orders.Option{
		orders.WithClock(clock),
		orders.WithLocation(cfg.Location),
		orders.WithTimeout(cfg.StoreTimeout),
	}
	var reminderStore reminders.Store
	storeKind := "memory"
	if store := openStore(ctx, cfg.DBURI); store != nil {
		defer store.Close()
		cacheOpts = append(cacheOpts, orders.WithStore(store))
		reminderStore = store
		storeKind = store.Kind()
	}

	// --- core ---
	cache := orders.New(cacheOpts...)
	notifier := messages.NewNotifier(bot, messages.Chats{
		Reminder:      cfg.ReminderChatID,
		TodayReminder: cfg.TodayReminderChatID,
		Command:       cfg.CommandChatID,
		Report:        cfg.ReportChatID,
	}, cfg.SendRPS)
	rem := reminders.New(reminders.Config{
		AdvanceRecipients: cfg.TargetUserIDs,
		SummaryRecipients: cfg.SummaryUserIDs,
		StoreTimeout:      cfg.StoreTimeout,
	}, notifier, reminderStore, clock)

	cache.Load(ctx)
	rem.Load(ctx)

	h := &handlers.Handler{
		Bot:       bot,
		Ingest:    ingest.NewService(cache, rem, parser.NewDateParser(cfg.Location, clock), notifier),
		Reports:   report.New(cache),
		Reminders: rem,
		Notify:    notifier,
		Limiter:   ratelimit.New(cfg.RateLimitPerMinute, clock),
		Clock:     clock,
		Loc:       cfg.Location,
	}

	// --- background jobs ---
	s, err := scheduler.Start(ctx, scheduler.Config{
		SweepInterval:     cfg.SweepInterval,
		EvictInterval:     cfg.EvictInterval,
		FlushInterval:     cfg.FlushInterval,
		ReminderRetention: cfg.ReminderRetention,
		OrderRetention:    cfg.OrderRetention,
		Clock:             clock,
	}, rem, cache)
	utils.Must(err)

	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		router := server.Router(stats{cache: cache, rem: rem}, storeKind, time.Now())
		go func() {
			utils.LogFor(server.Run(ctx, cfg.HTTPAddr, router), "health server")
		}()
	}

	h.Listen(ctx)

	// --- shutdown ---
	log.Info().Msg("shutting down")
	utils.LogFor(s.Shutdown(), "scheduler shutdown")
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if left := rem.Flush(flushCtx); left > 0 {
		log.Warn().Int("outstanding", left).Msg("reminder updates lost on shutdown")
	}
}

// openStore connects the configured backend. Any failure leaves the bot in
// memory-only mode.
func openStore(ctx context.Context, uri string) storage.Store {
	if uri == "" {
		log.Warn().Msg("DB_URI not set, running in memory only")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	store, err := storage.Open(ctx, uri)
	if err != nil {
		log.Error().Err(err).Msg("store unavailable, running in memory only")
		return nil
	}
	log.Info().Str("store", store.Kind()).Msg("store connected")
	return store
}

type stats struct {
	cache *orders.Cache
	rem   *reminders.Scheduler
}

func (s stats) Orders() int                     { return s.cache.Len() }
func (s stats) Reminders() (pending, fired int) { return s.rem.Counts() }
