package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"LEDGER_STORE", "DATABASE_URL", "LEDGER_RESET", "KAFKA_BROKERS", "KAFKA_TOPIC", "LOG_LEVEL", "AMOUNT_SCALE"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.False(t, cfg.Reset)
	assert.False(t, cfg.PublishEvents())
	assert.Equal(t, "ledger.records", cfg.KafkaTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int32(4), cfg.AmountScale)
}

func TestLoadPostgresAndKafka(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger?sslmode=disable")
	t.Setenv("LEDGER_RESET", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("AMOUNT_SCALE", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.True(t, cfg.Reset)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishEvents())
	assert.Equal(t, int32(2), cfg.AmountScale)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown store":        {"LEDGER_STORE": "sqlite"},
		"postgres without dsn": {"LEDGER_STORE": "postgres"},
		"reset not a bool":     {"LEDGER_RESET": "sometimes"},
		"scale not a number":   {"AMOUNT_SCALE": "four"},
		"negative scale":       {"AMOUNT_SCALE": "-1"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
