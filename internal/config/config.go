package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/queueless/booking/internal/model"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`

	HTTPPort    string `env:"HTTP_PORT" envDefault:"5000"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	Storage string `env:"STORAGE" envDefault:"postgres"`
	DBDSN   string `env:"DB_DSN"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL" envDefault:"168h"`

	Timezone      string   `env:"APP_TIMEZONE" envDefault:"UTC"`
	ClosedWeekday string   `env:"CLOSED_WEEKDAY" envDefault:"Sunday"`
	SlotLabels    []string `env:"SLOT_LABELS" envSeparator:"," envDefault:"09:00 AM,10:00 AM,11:00 AM,02:00 PM,03:00 PM,04:00 PM"`

	SeedEnabled       bool          `env:"SEED_ENABLED" envDefault:"false"`
	SeedDaysAhead     int           `env:"SEED_DAYS_AHEAD" envDefault:"7"`
	SeedInterval      time.Duration `env:"SEED_INTERVAL" envDefault:"24h"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15m"`

	UserCacheSize  int  `env:"USER_CACHE_SIZE" envDefault:"1024"`
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	TelegramAdminChatID int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"queueless.events"`

	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.SlotLabels = cleanLabels(cfg.SlotLabels)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные поля и совместимость настроек
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}

	if _, err := model.ParseWeekday(c.ClosedWeekday); err != nil {
		return fmt.Errorf("CLOSED_WEEKDAY: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	if len(c.SlotLabels) == 0 {
		return fmt.Errorf("SLOT_LABELS must not be empty")
	}
	if c.TelegramToken != "" && c.TelegramAdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.RefreshTTL < c.SessionTTL {
		return fmt.Errorf("REFRESH_TTL must not be shorter than SESSION_TTL")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location возвращает часовой пояс приложения (проверен в Validate)
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Weekday возвращает нерабочий день недели
func (c *Config) Weekday() time.Weekday {
	d, err := model.ParseWeekday(c.ClosedWeekday)
	if err != nil {
		return time.Sunday
	}
	return d
}

func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
