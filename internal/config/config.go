// Package config reads the runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Store backends.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds all configuration for the rules CLI and server.
type Config struct {
	LogLevel    string
	LogFormat   string
	Store       string
	RedisAddr   string
	RedisPrefix string
	SQLitePath  string
	HTTPAddr    string

	// EncryptionKey is a base64 AES-256 key; when set, stored values are encrypted.
	EncryptionKey string
	// PIIPatterns are regular expressions; matching variable names are masked before storage.
	PIIPatterns []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:    getEnv("RULES_LOG_LEVEL", "info"),
		LogFormat:   getEnv("RULES_LOG_FORMAT", "auto"),
		Store:       strings.ToLower(getEnv("RULES_STORE", StoreMemory)),
		RedisAddr:   getEnv("RULES_REDIS_ADDR", "localhost:6379"),
		RedisPrefix: getEnv("RULES_REDIS_PREFIX", "rules:"),
		SQLitePath:  getEnv("RULES_SQLITE_PATH", "rules.db"),
		HTTPAddr:    getEnv("RULES_HTTP_ADDR", ":8080"),

		EncryptionKey: os.Getenv("RULES_ENCRYPTION_KEY"),
		PIIPatterns:   splitList(os.Getenv("RULES_PII_PATTERNS")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreNone, StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want none, memory, redis or sqlite)", c.Store)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "auto":
	default:
		return fmt.Errorf("unknown log format %q (want text, json or auto)", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
