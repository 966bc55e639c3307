package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	LogLevel  string
	LogFormat string

	// Scheduling
	AuthorityTimezone   string
	AvailabilityPolicy  string
	SlotStepMinutes     int
	SlotDurationMinutes int
	BookingBuffer       time.Duration
	StoreTimeout        time.Duration
	DefaultPhoneRegion  string

	// Reminders
	ReminderLookahead time.Duration
	ReminderInterval  time.Duration // zero disables the in-process worker
	ReminderStatuses  []string

	// Notifications
	NotifyTimeout    time.Duration
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	MailFrom         string
	OrganizerEmail   string
	CalendarTitle    string
	CalendarLocation string

	// Rate limiting; empty RedisAddr disables it.
	RedisAddr          string
	RedisPassword      string
	RateLimitPerMinute int

	// First administrator, created at startup when both are set.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	cfg.AuthorityTimezone = getEnv("AUTHORITY_TIMEZONE", "America/New_York")
	cfg.AvailabilityPolicy = getEnv("AVAILABILITY_POLICY", "mon=14:00-17:00;wed=09:00-12:00,13:00-15:00")
	if cfg.SlotStepMinutes, err = getEnvAsInt("SLOT_STEP_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.SlotDurationMinutes, err = getEnvAsInt("SLOT_DURATION_MINUTES", 30); err != nil {
		return nil, err
	}
	bufferMinutes, err := getEnvAsInt("BOOKING_BUFFER_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	if bufferMinutes < 0 {
		return nil, fmt.Errorf("BOOKING_BUFFER_MINUTES must not be negative")
	}
	cfg.BookingBuffer = time.Duration(bufferMinutes) * time.Minute
	if cfg.StoreTimeout, err = getEnvAsDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	cfg.DefaultPhoneRegion = strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "US"))

	if cfg.ReminderLookahead, err = getEnvAsDuration("REMINDER_LOOKAHEAD", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = getEnvAsDuration("REMINDER_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	cfg.ReminderStatuses = getEnvAsList("REMINDER_STATUSES", []string{"pending"})

	if cfg.NotifyTimeout, err = getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	if cfg.SMTPPort, err = getEnvAsInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.MailFrom = getEnv("MAIL_FROM", "appointments@localhost")
	cfg.OrganizerEmail = getEnv("ORGANIZER_EMAIL", cfg.MailFrom)
	cfg.CalendarTitle = getEnv("CALENDAR_TITLE", "Pastoral appointment")
	cfg.CalendarLocation = getEnv("CALENDAR_LOCATION", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RateLimitPerMinute, err = getEnvAsInt("RATE_LIMIT_PER_MINUTE", 20); err != nil {
		return nil, err
	}

	cfg.BootstrapAdminEmail = getEnv("BOOTSTRAP_ADMIN_EMAIL", "")
	cfg.BootstrapAdminPassword = getEnv("BOOTSTRAP_ADMIN_PASSWORD", "")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values like "15m" or "24h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("env %s must not be negative", key)
	}

	return val, nil
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valStr := getEnv(key, "")
	if strings.TrimSpace(valStr) == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
