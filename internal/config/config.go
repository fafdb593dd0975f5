package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/session"
)

type Config struct {
	Addr           string        `env:"NUMBERGAME_ADDR" envDefault:":8080"`
	LogLevel       string        `env:"NUMBERGAME_LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool          `env:"NUMBERGAME_LOG_DEVELOPMENT" envDefault:"false"`
	DBDriver       string        `env:"NUMBERGAME_DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string        `env:"NUMBERGAME_DATABASE_URL" envDefault:"file:numbergame.db?_pragma=busy_timeout(5000)"`
	ActiveWindow   time.Duration `env:"NUMBERGAME_ACTIVE_WINDOW" envDefault:"10m"`
	LockedWindow   time.Duration `env:"NUMBERGAME_LOCKED_WINDOW" envDefault:"2m"`
	ResultsWindow  time.Duration `env:"NUMBERGAME_RESULTS_WINDOW" envDefault:"3m"`
	TickInterval   time.Duration `env:"NUMBERGAME_TICK_INTERVAL" envDefault:"1s"`
	ResumePoll     time.Duration `env:"NUMBERGAME_RESUME_POLL" envDefault:"5s"`
	PersistTimeout time.Duration `env:"NUMBERGAME_PERSIST_TIMEOUT" envDefault:"10s"`
	MaxBid         float64       `env:"NUMBERGAME_MAX_BID" envDefault:"10000"`
	Seed           int64         `env:"NUMBERGAME_SEED" envDefault:"0"`
	OutboxSize     int           `env:"NUMBERGAME_OUTBOX_SIZE" envDefault:"32"`
	ReadTimeout    time.Duration `env:"NUMBERGAME_READ_TIMEOUT" envDefault:"60s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the optional dotenv files, then the environment. Variables
// already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Timing() engine.Timing {
	return engine.Timing{Active: c.ActiveWindow, Locked: c.LockedWindow, Results: c.ResultsWindow}
}

func (c Config) Validate() error {
	if err := c.Timing().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxBid < 0 {
		return fmt.Errorf("config: NUMBERGAME_MAX_BID must not be negative")
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("config: NUMBERGAME_OUTBOX_SIZE must be positive")
	}
	return nil
}

// SessionOptions maps the config onto the round engine's options.
func (c Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Timing = c.Timing()
	opts.Limits = engine.Limits{MaxBid: c.MaxBid}
	opts.TickInterval = c.TickInterval
	opts.ResumePoll = c.ResumePoll
	opts.PersistTimeout = c.PersistTimeout
	return opts
}
