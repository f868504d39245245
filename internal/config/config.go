package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type AppConfig struct {
	Store        string
	DatabaseURL  string
	Reset        bool
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     string
	AmountScale  int32
}

// Load reads the configuration from the environment. Call godotenv.Load first
// to pick up a .env file.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		Store:        strings.ToLower(getEnv("LEDGER_STORE", StoreMemory)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ledger.records"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Reset, err = strconv.ParseBool(getEnv("LEDGER_RESET", "false")); err != nil {
		return AppConfig{}, fmt.Errorf("LEDGER_RESET: %w", err)
	}
	scale, err := strconv.ParseInt(getEnv("AMOUNT_SCALE", "4"), 10, 32)
	if err != nil {
		return AppConfig{}, fmt.Errorf("AMOUNT_SCALE: %w", err)
	}
	if scale < 0 {
		return AppConfig{}, fmt.Errorf("AMOUNT_SCALE: must not be negative, got %d", scale)
	}
	cfg.AmountScale = int32(scale)

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return AppConfig{}, fmt.Errorf("DATABASE_URL is required when LEDGER_STORE=%s", StorePostgres)
		}
	default:
		return AppConfig{}, fmt.Errorf("LEDGER_STORE: unknown store %q", cfg.Store)
	}

	return cfg, nil
}

// PublishEvents reports whether a Kafka publisher should be started.
func (c AppConfig) PublishEvents() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
