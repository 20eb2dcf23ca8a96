// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

// RedisConfig holds connection settings for the optional Redis-backed rate
// limiter. An empty URL means Redis is not configured and the in-memory
// limiter is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the achievement event sink. Empty brokers
// means events are logged locally instead of published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig bounds claim attempts per identity.
type RateLimitConfig struct {
	Disabled         bool
	RequestsPerMin   int
	BatchRequestsPer int
	Window           time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments must override the JWT signing key.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("KITCLAIM_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("KITCLAIM_DATABASE_URL"),
		JWTSigningKey: envOr("KITCLAIM_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("KITCLAIM_REDIS_URL"),
			PoolSize:     envIntOr("KITCLAIM_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("KITCLAIM_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KITCLAIM_KAFKA_BROKERS")),
			Topic:   envOr("KITCLAIM_KAFKA_TOPIC", "kitclaim.achievements"),
		},
		RateLimit: RateLimitConfig{
			Disabled:         os.Getenv("KITCLAIM_RATELIMIT_DISABLED") == "true",
			RequestsPerMin:   envIntOr("KITCLAIM_RATELIMIT_CLAIMS_PER_MIN", 10),
			BatchRequestsPer: envIntOr("KITCLAIM_RATELIMIT_BATCH_PER_MIN", 4),
			Window:           time.Minute,
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
