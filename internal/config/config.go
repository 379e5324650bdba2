package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/tempo/internal/constants"
)

// Environment overrides
const (
	EnvDatabasePath = "TEMPO_DB_PATH"
	EnvRemoteDSN    = "TEMPO_REMOTE_DSN"
	EnvTimezone     = "TEMPO_TIMEZONE"
	EnvSyncInterval = "TEMPO_SYNC_INTERVAL"
	EnvDebug        = "TEMPO_DEBUG"
)

// Config holds process-level settings. User-facing preferences are synced
// separately and do not live here.
type Config struct {
	// Local SQLite (or *.json) store
	DatabasePath string `yaml:"database_path"`

	// Remote store: a PostgreSQL connection string without password, or
	// "memory" for an in-process store
	RemoteDSN string `yaml:"remote_dsn"`

	// Fallback timezone used before preferences are loaded
	Timezone string `yaml:"timezone"`

	// How often the outbox is drained while the TUI runs, e.g. "30s"
	SyncInterval string `yaml:"sync_interval"`

	Debug bool `yaml:"debug"`
}

// Default returns the configuration of a fresh install.
func Default() Config {
	return Config{
		DatabasePath: constants.DefaultConfigPath,
		Timezone:     constants.DefaultTimezone,
		SyncInterval: constants.DefaultSyncInterval.String(),
	}
}

// Load reads the YAML file at path, if present, then applies environment
// overrides. envFiles are loaded into the environment first; with none given
// a .env in the working directory is used when it exists.
func Load(path string, envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := Default()
	data, err := os.ReadFile(ExpandHome(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if _, err := time.ParseDuration(cfg.SyncInterval); err != nil {
		return Config{}, fmt.Errorf("invalid sync_interval %q: %w", cfg.SyncInterval, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c Config) Save(path string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// SyncIntervalDuration returns the parsed drain interval.
func (c Config) SyncIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SyncInterval)
	if err != nil || d <= 0 {
		return constants.DefaultSyncInterval
	}
	return d
}

// Dir returns the directory holding the local database.
func (c Config) Dir() string {
	return filepath.Dir(ExpandHome(c.DatabasePath))
}

func (c *Config) applyEnv() {
	if v := getenv(EnvDatabasePath); v != "" {
		c.DatabasePath = v
	}
	if v := getenv(EnvRemoteDSN); v != "" {
		c.RemoteDSN = v
	}
	if v := getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := getenv(EnvSyncInterval); v != "" {
		c.SyncInterval = v
	}
	if v := getenv(EnvDebug); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultPath returns the location of config.yaml next to the default database.
func DefaultPath() string {
	return filepath.Join(filepath.Dir(ExpandHome(constants.DefaultConfigPath)), "config.yaml")
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
