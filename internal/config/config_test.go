package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("SLOT_LABELS", "09:00 AM, 10:00 AM ,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, []string{"09:00 AM", "10:00 AM"}, cfg.SlotLabels)
	assert.Equal(t, time.Sunday, cfg.Weekday())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Storage:       StorageMemory,
			ClosedWeekday: "Sunday",
			Timezone:      "UTC",
			SlotLabels:    []string{"09:00 AM"},
			SessionTTL:    time.Hour,
			RefreshTTL:    24 * time.Hour,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage = StoragePostgres }},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = "mongo" }},
		{name: "bad weekday", mutate: func(c *Config) { c.ClosedWeekday = "Funday" }},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{name: "no labels", mutate: func(c *Config) { c.SlotLabels = nil }},
		{name: "telegram without chat", mutate: func(c *Config) { c.TelegramToken = "t" }},
		{name: "zero ttl", mutate: func(c *Config) { c.SessionTTL = 0 }},
		{name: "refresh shorter than session", mutate: func(c *Config) { c.RefreshTTL = time.Minute }},
	}

	require.NoError(t, base().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
