package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 10, cfg.Pool.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Pool.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Pool.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Pool.CloseDeadline)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leapdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: json
verbose: true
pool:
  max_conns: 3
  connect_timeout: 2s
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 3, cfg.Pool.MaxConns)
	assert.Equal(t, 2*time.Second, cfg.Pool.ConnectTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Pool.IdleTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leapdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\n"), 0o644))

	t.Setenv("LEAPDB_OUTPUT", "csv")
	t.Setenv("LEAPDB_POOL__MAX_CONNS", "7")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Output)
	assert.Equal(t, 7, cfg.Pool.MaxConns)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("LEAPDB_OUTPUT", "csv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "table", "")
	flags.String("data-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "json"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output, "explicitly set flags win")
	assert.NotEmpty(t, cfg.DataDir, "unset flags do not clobber defaults")
}

func TestLoggerContext(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx), "missing logger falls back to discard")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx = WithLogger(ctx, logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestPoolOptions(t *testing.T) {
	cfg := Config{Pool: PoolConfig{
		MaxConns:       4,
		IdleTimeout:    time.Minute,
		ConnectTimeout: 3 * time.Second,
		CloseDeadline:  time.Second,
	}}
	opts := cfg.PoolOptions()
	assert.Equal(t, 4, opts.MaxConns)
	assert.Equal(t, time.Minute, opts.IdleTimeout)
	assert.Equal(t, 3*time.Second, opts.ConnectTimeout)
	assert.Equal(t, time.Second, opts.CloseDeadline)
}
