package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapdb/pkg/backend"
)

// ConfigFileName is the config file looked up in the working directory
// and the data directory.
const ConfigFileName = "leapdb.yaml"

// DefaultOutput is the render format used when none is configured.
const DefaultOutput = "table"

// DefaultDataDir returns ~/.leapdb, falling back to a relative .leapdb
// when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leapdb"
	}
	return filepath.Join(home, ".leapdb")
}

// findConfigFile picks the config file to use.
// Priority: explicit path > ./leapdb.yaml > <dataDir>/leapdb.yaml.
func findConfigFile(explicit, dataDir string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	candidate := filepath.Join(dataDir, ConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Load resolves configuration from defaults, the config file, LEAPDB_*
// environment variables, and explicitly set flags, in ascending
// precedence.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":             DefaultDataDir(),
		"output":               DefaultOutput,
		"verbose":              false,
		"pool.max_conns":       backend.DefaultMaxConns,
		"pool.idle_timeout":    backend.DefaultIdleTimeout.String(),
		"pool.connect_timeout": backend.DefaultConnectTimeout.String(),
		"pool.close_deadline":  backend.DefaultCloseDeadline.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, if present.
	if path := findConfigFile(cfgFile, DefaultDataDir()); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables: LEAPDB_DATA_DIR -> data_dir,
	// LEAPDB_POOL__MAX_CONNS -> pool.max_conns.
	if err := k.Load(env.Provider("LEAPDB_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "LEAPDB_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// PoolOptions converts the configured pool settings into backend options.
func (c *Config) PoolOptions() backend.PoolOptions {
	return backend.PoolOptions{
		MaxConns:       c.Pool.MaxConns,
		IdleTimeout:    c.Pool.IdleTimeout,
		ConnectTimeout: c.Pool.ConnectTimeout,
		CloseDeadline:  c.Pool.CloseDeadline,
	}
}
