package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer  string // Issuer claim for tokens and otpauth URIs (default: accountd)
	AppName string // Display name used in outgoing mail (default: Issuer)

	TokenSecret string        // Required: HMAC secret for access tokens
	TokenTTL    time.Duration // Optional: access token lifetime (default: 15m)

	DatabaseFile string // Optional: path to SQLite database file (default: ./accountd.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-code purge interval (default: 10m)
	OTPTTL               time.Duration // Email code lifetime (default: 5m)

	// SMTP settings. When Host is empty outgoing mail is logged instead of sent.
	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUser     string
	SMTPPass     string
	SMTPInsecure bool

	// Seed admin credentials, applied only when the user table is empty.
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:      getEnvOrDefault("ACCOUNT_ISSUER", "accountd"),
		AppName:     os.Getenv("ACCOUNT_APP_NAME"),
		TokenSecret: os.Getenv("ACCOUNT_TOKEN_SECRET"),
		TokenTTL:    getEnvDurationOrDefault("ACCOUNT_TOKEN_TTL", 15*time.Minute),

		DatabaseFile: getEnvOrDefault("ACCOUNT_DATABASE_FILE", "accountd.db"),
		PepperFile:   getEnvOrDefault("ACCOUNT_PEPPER_FILE", "pepper"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 10*time.Minute),
		OTPTTL:               getEnvDurationOrDefault("ACCOUNT_OTP_TTL", 5*time.Minute),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		SMTPInsecure: os.Getenv("SMTP_INSECURE") == "true",

		AdminEmail:    os.Getenv("ACCOUNT_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ACCOUNT_ADMIN_PASSWORD"),
	}

	if cfg.AppName == "" {
		cfg.AppName = cfg.Issuer
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
