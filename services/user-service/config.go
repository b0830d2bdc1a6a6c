package main

import (
	"fmt"
	"os"
)

// Config holds all environment inputs for the user-service.
type Config struct {
	Port   string
	Env    string
	DBPath string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8085"),
		Env:    getEnv("ENV", "development"),
		DBPath: os.Getenv("USER_DB_PATH"),
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("USER_DB_PATH is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
