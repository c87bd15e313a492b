// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr     string
	LogLevel     string
	PostgresURL  string // empty selects the in-memory backend
	RedisAddr    string
	KafkaBrokers []string

	NotificationTopic string
	PaymentGatewayURL string
	GatewayTimeout    time.Duration

	Currency          string
	LowStockThreshold int
	LockThreshold     int
	LockDuration      time.Duration
	ReservationTTL    time.Duration
	SessionTTL        time.Duration
	IdempotencyTTL    time.Duration

	OTLPEndpoint string
}

func Load() Config {
	return Config{
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		LogLevel:     env("LOG_LEVEL", "info"),
		PostgresURL:  env("PG_URL", ""),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: strings.Split(env("KAFKA_ADDR", "localhost:9092"), ","),

		NotificationTopic: env("NOTIFICATION_TOPIC", "notification.events"),
		PaymentGatewayURL: env("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
		GatewayTimeout:    duration("GATEWAY_TIMEOUT", 5*time.Second),

		Currency:          env("CURRENCY", "USD"),
		LowStockThreshold: integer("LOW_STOCK_THRESHOLD", 10),
		LockThreshold:     integer("LOGIN_LOCK_THRESHOLD", 5),
		LockDuration:      duration("LOGIN_LOCK_DURATION", 15*time.Minute),
		ReservationTTL:    duration("RESERVATION_TTL", 15*time.Minute),
		SessionTTL:        duration("SESSION_TTL", 30*time.Minute),
		IdempotencyTTL:    duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func integer(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func duration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
