package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Remote backend names accepted in RemoteConfig.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// RemoteConfig selects and configures the remote document store.
type RemoteConfig struct {
	// Backend is one of "memory", "sqlite" or "redis".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// RedisAddr is the host:port of the redis backend.
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`

	// RedisPrefix namespaces every key and channel the redis backend uses.
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`

	// CommandTimeoutSec bounds a single remote command issued from the CLI.
	CommandTimeoutSec int `mapstructure:"command_timeout_sec" yaml:"command_timeout_sec"`
}

// CommandTimeout returns CommandTimeoutSec as a duration, falling back to
// ten seconds when unset.
func (c RemoteConfig) CommandTimeout() time.Duration {
	if c.CommandTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.CommandTimeoutSec) * time.Second
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Path  string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// ConfigDir returns ~/.config/tasksync, or the working directory when the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tasksync")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tasksync/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Remote: RemoteConfig{
			Backend:           BackendSQLite,
			SQLitePath:        filepath.Join(dir, "tasks.db"),
			RedisAddr:         "localhost:6379",
			RedisPrefix:       "tasksync:",
			CommandTimeoutSec: 10,
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "tasksync.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote.backend", def.Remote.Backend)
	v.SetDefault("remote.sqlite_path", def.Remote.SQLitePath)
	v.SetDefault("remote.redis_addr", def.Remote.RedisAddr)
	v.SetDefault("remote.redis_prefix", def.Remote.RedisPrefix)
	v.SetDefault("remote.command_timeout_sec", def.Remote.CommandTimeoutSec)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.path", def.Log.Path)
	v.SetDefault("display.theme", def.Display.Theme)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if _, ok := err.(*os.PathError); !ok && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Remote.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("parsing config %s: unknown remote backend %q", path, cfg.Remote.Backend)
	}

	cfg.Remote.SQLitePath = expandHome(cfg.Remote.SQLitePath)
	cfg.Log.Path = expandHome(cfg.Log.Path)

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote", cfg.Remote)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
