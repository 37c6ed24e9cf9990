// Package config loads the bot settings from the environment (a .env file is
// applied by main) with defaults and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TZ_NAME resolves without system zoneinfo
)

// SecretTokenPath is where a Docker secret with the bot token is mounted.
const SecretTokenPath = "/run/secrets/telegram_bot_token"

type Config struct {
	TelegramToken string

	// Reminder recipients
	TargetUserIDs  []int64 // mentioned on every reminder
	SummaryUserIDs []int64 // additionally mentioned on day-of summaries

	// Chats
	ReminderChatID      int64
	TodayReminderChatID int64
	CommandChatID       int64
	ReportChatID        int64

	// Storage
	DBURI        string // sqlite path, mongodb:// URI, or empty for memory only
	StoreTimeout time.Duration

	// Time
	TZName   string
	Location *time.Location

	// Logging
	LogLevel  string // debug|info|warn|error
	LogPretty bool

	// Limits
	RateLimitPerMinute int
	SendRPS            float64

	// HTTP
	HTTPAddr string // empty disables the health server

	// Jobs
	SweepInterval     time.Duration
	EvictInterval     time.Duration
	FlushInterval     time.Duration
	ReminderRetention time.Duration
	OrderRetention    time.Duration
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates the result.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken: botToken(SecretTokenPath),

		ReminderChatID:      getint64("REMINDER_CHAT_ID", 0),
		TodayReminderChatID: getint64("TODAY_REMINDER_CHAT_ID", 0),
		CommandChatID:       getint64("COMMAND_CHAT_ID", 0),
		ReportChatID:        getint64("REPORT_CHAT_ID", 0),

		DBURI:        strings.TrimSpace(getenv("DB_URI", "")),
		StoreTimeout: getdur("STORE_TIMEOUT", 5*time.Second),

		TZName: getenv("TZ_NAME", "Asia/Hong_Kong"),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		RateLimitPerMinute: getint("RATE_LIMIT_PER_MINUTE", 10),
		SendRPS:            getfloat("SEND_RPS", 20),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		SweepInterval:     getdur("SWEEP_INTERVAL", time.Minute),
		EvictInterval:     getdur("EVICT_INTERVAL", time.Hour),
		FlushInterval:     getdur("FLUSH_INTERVAL", 10*time.Minute),
		ReminderRetention: getdur("REMINDER_RETENTION", 30*24*time.Hour),
		OrderRetention:    getdur("ORDER_RETENTION", 90*24*time.Hour),
	}

	var err error
	if cfg.TargetUserIDs, err = splitInt64CSV(getenv("TARGET_USER_IDS", "")); err != nil {
		return cfg, fmt.Errorf("TARGET_USER_IDS: %w", err)
	}
	if cfg.SummaryUserIDs, err = splitInt64CSV(getenv("SUMMARY_USER_IDS", "")); err != nil {
		return cfg, fmt.Errorf("SUMMARY_USER_IDS: %w", err)
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok && strings.TrimSpace(v) == "" {
		cfg.HTTPAddr = ""
	}

	// --- validation ---
	if cfg.TelegramToken == "" {
		return cfg, errors.New("bot token not found: neither the Docker secret nor TELEGRAM_BOT_TOKEN is set")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if cfg.Location, err = time.LoadLocation(cfg.TZName); err != nil {
		return cfg, fmt.Errorf("TZ_NAME: %w", err)
	}
	if cfg.RateLimitPerMinute < 1 {
		return cfg, errors.New("RATE_LIMIT_PER_MINUTE must be >= 1")
	}
	if cfg.SendRPS <= 0 {
		return cfg, errors.New("SEND_RPS must be > 0")
	}
	if cfg.StoreTimeout <= 0 || cfg.SweepInterval <= 0 || cfg.EvictInterval <= 0 || cfg.FlushInterval <= 0 {
		return cfg, errors.New("timeouts and intervals must be positive durations")
	}
	if cfg.ReminderRetention <= 0 || cfg.OrderRetention <= 0 {
		return cfg, errors.New("retention periods must be positive durations")
	}

	return cfg, nil
}

// botToken prefers the Docker secret over the environment variable.
func botToken(secretPath string) string {
	if data, err := os.ReadFile(secretPath); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitInt64CSV(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
