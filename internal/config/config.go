package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is read from an optional TOML file (DEBTBOOK_CONFIG) and then
// overridden by environment variables.
type Config struct {
	BotToken      string `toml:"bot_token"`
	DatabaseURL   string `toml:"database_url"`
	Timezone      string `toml:"timezone"`
	LogLevel      string `toml:"log_level"`
	MetricsAddr   string `toml:"metrics_addr"`
	MigrationsDir string `toml:"migrations_dir"`

	DefaultCurrency string `toml:"default_currency"`
	InviteTTLDays   int    `toml:"invite_ttl_days"`

	RemindDaysBefore []int        `toml:"remind_days_before"` // e.g. [3,1,0]
	RemindEvery      tomlDuration `toml:"remind_every"`
}

// tomlDuration lets the file say remind_every = "30m".
type tomlDuration struct{ time.Duration }

func (d *tomlDuration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Defaults() Config {
	return Config{
		Timezone:         "Europe/Moscow",
		LogLevel:         "info",
		MigrationsDir:    "./migrations",
		DefaultCurrency:  "RUB",
		InviteTTLDays:    36500,
		RemindDaysBefore: []int{3, 1, 0},
		RemindEvery:      tomlDuration{time.Hour},
	}
}

// Load builds the config without validating required fields.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("DEBTBOOK_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	setString(&cfg.BotToken, "BOT_TOKEN")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Timezone, "TZ")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.MigrationsDir, "MIGRATIONS_DIR")
	setString(&cfg.DefaultCurrency, "DEFAULT_CURRENCY")

	if v := os.Getenv("INVITE_TTL_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("INVITE_TTL_DAYS: %w", err)
		}
		cfg.InviteTTLDays = n
	}
	if v := os.Getenv("REMIND_EVERY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("REMIND_EVERY: %w", err)
		}
		cfg.RemindEvery = tomlDuration{d}
	}
	if v := os.Getenv("REMIND_DAYS_BEFORE"); v != "" {
		days, err := ParseDays(v)
		if err != nil {
			return Config{}, fmt.Errorf("REMIND_DAYS_BEFORE: %w", err)
		}
		cfg.RemindDaysBefore = days
	}

	return cfg, nil
}

// MustLoad loads and validates, exiting on failure.
func MustLoad() Config {
	cfg, err := Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	return cfg
}

func (c Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.InviteTTLDays <= 0 {
		errs = append(errs, errors.New("INVITE_TTL_DAYS must be positive"))
	}
	if c.RemindEvery.Duration <= 0 {
		errs = append(errs, errors.New("REMIND_EVERY must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TZ: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLDays) * 24 * time.Hour
}

// ParseDays parses "3,1,0" into reminder offsets, dropping duplicates.
func ParseDays(s string) ([]int, error) {
	var days []int
	seen := map[int]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 31 {
			return nil, fmt.Errorf("bad day offset %q", p)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		days = append(days, n)
	}
	if len(days) == 0 {
		return nil, errors.New("no day offsets")
	}
	return days, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
