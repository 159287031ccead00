// Package config handles configuration loading for Kestrel. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Kestrel.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Lock     LockConfig     `mapstructure:"lock"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// RegistryConfig holds registry location and identity settings.
type RegistryConfig struct {
	// StateDir is the directory holding the registry document. Relative
	// paths are resolved against the current working directory.
	StateDir string `mapstructure:"state_dir"`
	// Actor is recorded on audit log entries.
	Actor string `mapstructure:"actor"`
	// Archive enables the sqlite archive for cleanup sweeps.
	Archive bool `mapstructure:"archive"`
}

// LockConfig holds cross-process lock tuning.
type LockConfig struct {
	// Timeout bounds how long lock acquisition polls before giving up.
	Timeout time.Duration `mapstructure:"timeout"`
	// Stale is the age past which an abandoned lock file is reclaimed.
	Stale time.Duration `mapstructure:"stale"`
}

// CleanupConfig holds retention settings.
type CleanupConfig struct {
	// MaxAge is the default retention window for terminal tasks.
	MaxAge time.Duration `mapstructure:"max_age"`
}

// WatchConfig holds live board settings.
type WatchConfig struct {
	// RefreshRate is the fallback poll interval for the watch board.
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (KESTREL_*)
//  2. Project config (.kestrel/config.yaml in current directory or parent)
//  3. User config (~/.config/kestrel/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("KESTREL")
	v.AutomaticEnv()
	v.BindEnv("registry.state_dir", "KESTREL_STATE_DIR")
	v.BindEnv("registry.actor", "KESTREL_ACTOR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.state_dir", ".kestrel")
	v.SetDefault("registry.actor", "")
	v.SetDefault("registry.archive", false)
	v.SetDefault("lock.timeout", 5*time.Second)
	v.SetDefault("lock.stale", 30*time.Second)
	v.SetDefault("cleanup.max_age", 7*24*time.Hour)
	v.SetDefault("watch.refresh_rate", 2*time.Second)
}

// getUserConfigDir returns the XDG config directory for kestrel.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kestrel")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kestrel")
}

// findProjectConfig walks up from the current directory looking for
// .kestrel/config.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".kestrel", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
