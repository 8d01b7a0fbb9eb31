// Package config centralises configuration parsing for the healthtracker services.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values shared by the api, consumer and dlqmanager binaries.
type Config struct {
	HTTPAddress    string
	MetricsAddress string
	PostgresURL    string
	StoreTimeout   time.Duration
	TimeZone       string

	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int

	LogLevel      string
	LogFile       string
	LogFormatJSON bool

	CORSAllowedOrigins []string

	RedisAddress           string
	RedisPassword          string
	AuthRateLimitPerMinute int
	TrustedProxies         []string // Peers allowed to set X-Forwarded-For; empty trusts none.

	KafkaBrokers       []string
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	ConsumerGroupID    string
	ConsumerTopics     []string
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
}

// Load reads environment variables into Config, applying defaults for local dev.
// The store connection string and the token secret have no defaults; see Validate.
func Load() Config {
	return Config{
		HTTPAddress:    getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress: getEnv("METRICS_ADDRESS", ":9195"),
		PostgresURL:    getEnv("POSTGRES_URL", ""),
		StoreTimeout:   getDurationEnv("STORE_TIMEOUT", 5*time.Second),
		TimeZone:       getEnv("TZ", "Local"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTIssuer:  getEnv("JWT_ISSUER", "healthtracker"),
		TokenTTL:   getDurationEnv("TOKEN_TTL", 30*24*time.Hour),
		BcryptCost: getIntEnv("BCRYPT_COST", 12),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogFormatJSON: getBoolEnv("LOG_FORMAT_JSON", false),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		RedisAddress:           getEnv("REDIS_ADDRESS", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		AuthRateLimitPerMinute: getIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		TrustedProxies:         splitAndTrim(getEnv("TRUSTED_PROXIES", "")),

		KafkaBrokers:       splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		SchemaRegistryURL:  getEnv("SCHEMA_REGISTRY_URL", "http://schema-registry:8081"),
		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getIntEnv("OUTBOX_BATCH_SIZE", 25),
		ConsumerGroupID:    getEnv("CONSUMER_GROUP_ID", "healthtracker-event-log"),
		ConsumerTopics:     splitAndTrim(getEnv("CONSUMER_TOPICS", "activity_events,goal_events,checkin_events")),
		DLQPollInterval:    getDurationEnv("DLQ_POLL_INTERVAL", 30*time.Second),
		DLQMaxRetries:      getIntEnv("DLQ_MAX_RETRIES", 5),
		DLQBaseDelay:       getDurationEnv("DLQ_BASE_DELAY", time.Minute),
	}
}

// Validate reports configuration that makes startup impossible.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.PostgresURL) == "" {
		errs = append(errs, errors.New("POSTGRES_URL is required"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves TimeZone; "Local" or empty maps to time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// OutboxEnabled reports whether Kafka delivery is configured.
func (c Config) OutboxEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
