package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	PostgresURL string

	Redis RedisConfig

	Kafka KafkaConfig

	Partner PartnerConfig

	Notification NotificationConfig

	// AdminTokenHash is the bcrypt hash of the back-office admin token.
	AdminTokenHash string

	// MagicLinkSigningKey signs convention-scoped magic-link JWTs.
	MagicLinkSigningKey string

	// OutboxPollInterval controls how often the outbox worker drains
	// pending events.
	OutboxPollInterval time.Duration

	// ResyncInterval controls how often pending partner broadcasts are
	// retried; ResyncLimit caps how many per run.
	ResyncInterval time.Duration
	ResyncLimit    int
}

// RedisConfig configures the optional Redis connection backing the
// notification rate limiter. Empty URL means Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox Kafka sink. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// PartnerConfig configures the national employment partner broadcast.
type PartnerConfig struct {
	// Enabled is the broadcast feature flag: when off, conventions for
	// partner agencies are skipped, not errored.
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NotificationConfig bounds outbound email/SMS throughput.
type NotificationConfig struct {
	EmailPerMinute int
	SMSPerHour     int
}

// FromEnv builds the Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:        envOr("IMMERSION_ADDR", ":8080"),
		PostgresURL: os.Getenv("IMMERSION_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("IMMERSION_REDIS_URL"),
			PoolSize:     envInt("IMMERSION_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("IMMERSION_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("IMMERSION_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("IMMERSION_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("IMMERSION_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("IMMERSION_KAFKA_BROKERS")),
			Topic:   envOr("IMMERSION_KAFKA_TOPIC", "immersion.domain-events"),
		},
		Partner: PartnerConfig{
			Enabled: os.Getenv("IMMERSION_PARTNER_BROADCAST_ENABLED") == "true",
			BaseURL: os.Getenv("IMMERSION_PARTNER_URL"),
			APIKey:  os.Getenv("IMMERSION_PARTNER_API_KEY"),
			Timeout: envDuration("IMMERSION_PARTNER_TIMEOUT", 10*time.Second),
		},
		Notification: NotificationConfig{
			EmailPerMinute: envInt("IMMERSION_EMAIL_PER_MINUTE", 120),
			SMSPerHour:     envInt("IMMERSION_SMS_PER_HOUR", 50),
		},
		AdminTokenHash:      os.Getenv("IMMERSION_ADMIN_TOKEN_HASH"),
		MagicLinkSigningKey: envOr("IMMERSION_MAGIC_LINK_KEY", "dev-secret-key-change-in-production"),
		OutboxPollInterval:  envDuration("IMMERSION_OUTBOX_POLL_INTERVAL", 2*time.Second),
		ResyncInterval:      envDuration("IMMERSION_RESYNC_INTERVAL", 10*time.Minute),
		ResyncLimit:         envInt("IMMERSION_RESYNC_LIMIT", 100),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
