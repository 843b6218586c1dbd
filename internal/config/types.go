// Package config provides application configuration for leapdb, loaded
// from file, environment, and flags with the usual precedence.
package config

import (
	"context"
	"log/slog"
	"time"
)

// PoolConfig mirrors the backend pool options in configuration form.
type PoolConfig struct {
	MaxConns       int           `koanf:"max_conns"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	CloseDeadline  time.Duration `koanf:"close_deadline"`
}

// Config is the resolved application configuration.
type Config struct {
	// DataDir holds connections.json and query-history.json.
	DataDir string `koanf:"data_dir"`
	// Output is the default render format: table, csv, json.
	Output  string     `koanf:"output"`
	Verbose bool       `koanf:"verbose"`
	Pool    PoolConfig `koanf:"pool"`
}

// loggerKey stores the process logger in a command context.
type loggerKey struct{}

// configKey stores the resolved Config in a command context.
type configKey struct{}

// WithConfig returns a context carrying the resolved configuration.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the configuration from the context, falling back
// to defaults when none is set.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{DataDir: DefaultDataDir(), Output: DefaultOutput}
}

// WithLogger returns a context carrying the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context. Returns a discard
// logger when none is set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
