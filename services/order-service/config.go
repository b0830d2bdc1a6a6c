package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all environment inputs for the order-service. The store path
// and the user-service address have no defaults: both are deployment facts
// that must be supplied explicitly.
type Config struct {
	Port           string
	Env            string
	DBPath         string
	UserServiceURL string

	// User validation call budget.
	ValidationTimeout time.Duration
	ValidationBackoff time.Duration

	// Repository-level busy retries against the shared store file.
	StoreBusyRetries int
	StoreBusyBackoff time.Duration

	// Pipeline-level retries of a busy repository write.
	StoreRetries      int
	StoreRetryBackoff time.Duration

	// Optional order event publishing.
	KafkaBrokers     string
	OrderEventsTopic string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8083"),
		Env:               getEnv("ENV", "development"),
		DBPath:            os.Getenv("ORDER_DB_PATH"),
		UserServiceURL:    os.Getenv("USER_SERVICE_URL"),
		ValidationTimeout: getDurationEnv("USER_VALIDATION_TIMEOUT", 5*time.Second),
		ValidationBackoff: getDurationEnv("USER_VALIDATION_BACKOFF", 200*time.Millisecond),
		StoreBusyRetries:  getIntEnv("STORE_BUSY_RETRIES", 5),
		StoreBusyBackoff:  getDurationEnv("STORE_BUSY_BACKOFF", 50*time.Millisecond),
		StoreRetries:      getIntEnv("STORE_RETRIES", 2),
		StoreRetryBackoff: getDurationEnv("STORE_RETRY_BACKOFF", 100*time.Millisecond),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		OrderEventsTopic:  getEnv("ORDER_EVENTS_TOPIC", "order.created"),
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("ORDER_DB_PATH is required")
	}
	if cfg.UserServiceURL == "" {
		return nil, fmt.Errorf("USER_SERVICE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
