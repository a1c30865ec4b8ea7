package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AvailabilityTTL time.Duration
	AutoConfirm     bool
	DefaultTimezone string

	CompletionInterval  time.Duration
	CompletionBatchSize int

	ReminderHour     int
	ReminderLeadDays int

	NotifPollInterval  time.Duration
	NotifBatchSize     int
	NotifMaxAttempts   int
	NotifRetryBackoff  time.Duration
	NotifEmailProvider string

	RateLimitPerMinute        int
	RateLimitBurst            int
	SessionRateLimitPerMinute int
	SessionRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       readInt("REDIS_DB", 0),

		AvailabilityTTL: readDurationSeconds("AVAILABILITY_TTL_SECONDS", 120),
		AutoConfirm:     readBool("BOOKING_AUTO_CONFIRM", false),
		DefaultTimezone: readString("DEFAULT_TIMEZONE", "UTC"),

		CompletionInterval:  readDurationSeconds("COMPLETION_SCAN_INTERVAL_SECONDS", 60),
		CompletionBatchSize: readInt("COMPLETION_BATCH_SIZE", 100),

		ReminderHour:     readInt("REMINDER_HOUR", 9),
		ReminderLeadDays: readInt("REMINDER_LEAD_DAYS", 1),

		NotifPollInterval:  readDurationSeconds("NOTIF_POLL_INTERVAL_SECONDS", 5),
		NotifBatchSize:     readInt("NOTIF_BATCH_SIZE", 50),
		NotifMaxAttempts:   readInt("NOTIF_MAX_ATTEMPTS", 3),
		NotifRetryBackoff:  readDurationMillis("NOTIF_RETRY_BACKOFF_MS", 500),
		NotifEmailProvider: os.Getenv("NOTIF_EMAIL_PROVIDER"),

		RateLimitPerMinute:        readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:            readInt("RATE_LIMIT_BURST", 30),
		SessionRateLimitPerMinute: readInt("SESSION_RATE_LIMIT_PER_MIN", 600),
		SessionRateLimitBurst:     readInt("SESSION_RATE_LIMIT_BURST", 120),
	}
}

func readString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readDurationMillis(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Millisecond
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
