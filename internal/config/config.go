package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type Config struct {
	Port          string
	DatabaseDSN   string
	RunMigrations bool

	// Optional backends. Empty values disable the feature.
	RedisURL       string
	RabbitURL      string
	SendGridAPIKey string

	MailFrom         string
	ContactRecipient string

	OrderNumberPrefix string

	SessionCookieName   string
	SessionCookieSecure bool

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	CORSAllowOrigins []string
	LogDevelopment   bool
}

func Load() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		DatabaseDSN:   getenv("DATABASE_DSN", ""),
		RunMigrations: envBool("RUN_MIGRATIONS", true),

		RedisURL:       getenv("REDIS_URL", ""),
		RabbitURL:      getenv("RABBITMQ_URL", ""),
		SendGridAPIKey: getenv("SENDGRID_API_KEY", ""),

		MailFrom:         getenv("MAIL_FROM", "orders@kampungcuisine.com"),
		ContactRecipient: getenv("CONTACT_RECIPIENT", "info@kampungcuisine.com"),

		OrderNumberPrefix: getenv("ORDER_NUMBER_PREFIX", "KC"),

		SessionCookieName:   getenv("SESSION_COOKIE_NAME", "sessionid"),
		SessionCookieSecure: envBool("SESSION_COOKIE_SECURE", false),

		RequestTimeout:  parseDuration(getenv("REQUEST_TIMEOUT", "10s"), 10*time.Second),
		ShutdownTimeout: parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
		LogDevelopment:   envBool("LOG_DEVELOPMENT", false),
	}

	if cfg.DatabaseDSN == "" {
		return cfg, errors.New("DATABASE_DSN not set")
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
