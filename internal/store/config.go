package store

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the sqlite connection pool backing the store.
type Config struct {
	Path string

	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
}

// LoadConfig builds a Config from FATHOM_DB_* environment variables, filling
// unset values with defaults. Malformed values fall back to the default with
// a warning left to the caller's logger at open time.
func LoadConfig() Config {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("FATHOM_DB_PATH")); path != "" {
		cfg.Path = path
	}
	if v := strings.TrimSpace(os.Getenv("FATHOM_DB_MAX_OPEN_CONNS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.MaxOpenConns = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("FATHOM_DB_MAX_IDLE_CONNS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.MaxIdleConns = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("FATHOM_DB_CONN_MAX_LIFETIME")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.ConnMaxLifetime = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("FATHOM_DB_CONN_MAX_IDLE_TIME")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.ConnMaxIdleTime = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("FATHOM_DB_BUSY_TIMEOUT")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.BusyTimeout = parsed
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 15 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}
