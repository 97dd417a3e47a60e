package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the bot
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserIDs  string `env:"ADMIN_USER_IDS"`

	// Storage
	DBType          string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabaseURL     string `env:"DATABASE_URL" envDefault:"data/lexera.db"`
	ProgressBackend string `env:"PROGRESS_BACKEND" envDefault:"sql"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	SeedLocal       bool   `env:"SEED_LOCAL_CATALOG" envDefault:"false"`

	LogMode string `env:"LOG_MODE" envDefault:"development"`

	// Game
	RewardPoints     int           `env:"REWARD_POINTS" envDefault:"10"`
	FeedbackDelay    time.Duration `env:"FEEDBACK_DELAY" envDefault:"2s"`
	TierAdvanceDelay time.Duration `env:"TIER_ADVANCE_DELAY" envDefault:"2500ms"`

	// Sessions
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// Audio
	TTSURLTemplate    string `env:"TTS_URL_TEMPLATE"`
	CorrectSoundURL   string `env:"CORRECT_SOUND_URL"`
	IncorrectSoundURL string `env:"INCORRECT_SOUND_URL"`
}

// Load reads an optional .env file and decodes the environment into a Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse decodes the current environment without touching .env files
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and numeric settings
func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_TYPE must be sqlite or postgres, got %q", c.DBType)
	}
	switch c.ProgressBackend {
	case "sql", "redis":
	default:
		return fmt.Errorf("PROGRESS_BACKEND must be sql or redis, got %q", c.ProgressBackend)
	}
	if c.RewardPoints <= 0 {
		return fmt.Errorf("REWARD_POINTS must be positive, got %d", c.RewardPoints)
	}
	if c.FeedbackDelay < 0 || c.TierAdvanceDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// DriverName maps DB_TYPE to the registered database/sql driver
func (c *Config) DriverName() string {
	if c.DBType == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// Admins parses ADMIN_USER_IDS. Invalid entries are returned in bad.
func (c *Config) Admins() (ids map[int64]bool, bad []string) {
	ids = make(map[int64]bool)
	if c.AdminUserIDs == "" {
		return ids, nil
	}
	for _, idStr := range strings.Split(c.AdminUserIDs, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			bad = append(bad, idStr)
			continue
		}
		ids[id] = true
	}
	return ids, bad
}
