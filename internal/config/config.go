// Package config loads Layercake's runtime configuration: storage backend
// selection, Redis event-bus addressing, and CLI/render defaults. Grounded
// on the pack's spf13/viper + env-override pattern (rohankatakam-coderisk's
// internal/config/config.go) — the teacher itself ships no CLI config
// layer, only in-process graph construction.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// StorageBackend selects which internal/store implementation to wire.
type StorageBackend string

const (
	BackendMemory   StorageBackend = "memory"
	BackendPostgres StorageBackend = "postgres"
	BackendSQLite   StorageBackend = "sqlite"
)

// StorageConfig configures the persistence backend.
type StorageConfig struct {
	Backend     StorageBackend `yaml:"backend"`
	PostgresDSN string         `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	SQLitePath  string         `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// RedisConfig configures the event bus's Redis publisher. Addr is left
// empty for the in-process MemoryBus; setting it switches wiring to RedisBus.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig configures the production logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|golog
}

// RenderConfig carries CLI-wide render defaults, independent of any one
// invocation's model.RenderConfig argument.
type RenderConfig struct {
	DefaultTarget string `yaml:"default_target" mapstructure:"default_target"`
	DefaultTheme  string `yaml:"default_theme" mapstructure:"default_theme"`
}

// Config is Layercake's full runtime configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
	Render  RenderConfig  `yaml:"render"`
}

// Default returns the configuration used when no file or env override is
// present: an in-memory store, no Redis (MemoryBus), info-level logging.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "layercake.db",
		},
		Redis: RedisConfig{
			Prefix: "layercake:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Render: RenderConfig{
			DefaultTarget: "mermaid",
			DefaultTheme:  "default",
		},
	}
}

// Load reads configuration from path (or, if empty, from the standard
// search locations: ./layercake.yaml, then $HOME/layercake.yaml),
// applying LAYERCAKE_-prefixed environment variable overrides on top. A
// missing config file is not an error: the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("storage.backend", string(cfg.Storage.Backend))
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.prefix", cfg.Redis.Prefix)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("render.default_target", cfg.Render.DefaultTarget)
	v.SetDefault("render.default_theme", cfg.Render.DefaultTheme)

	v.SetEnvPrefix("LAYERCAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(expandPath(path))
	} else {
		v.SetConfigName("layercake")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides covers the handful of fields where viper's automatic
// env binding needs an explicit type coercion (the int Redis DB and the
// typed StorageBackend string) rather than
// the string unmarshal viper.Unmarshal already handles for the rest.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LAYERCAKE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("LAYERCAKE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = StorageBackend(v)
	}
}

// expandPath resolves a leading "~" to the user's home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Save writes cfg to path in YAML form, for `layercake config init`.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.Set("storage", c.Storage)
	v.Set("redis", c.Redis)
	v.Set("log", c.Log)
	v.Set("render", c.Render)
	if err := v.WriteConfigAs(expandPath(path)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
