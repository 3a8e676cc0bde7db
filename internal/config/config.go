package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/flowboardhq/flowboard/internal/recommend"
)

// Config represents the complete Flowboard configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// ServerConfig controls the HTTP API server
type ServerConfig struct {
	// Addr is the listen address (default: "127.0.0.1:7320")
	Addr string `mapstructure:"addr"`
	// ReadTimeoutSeconds is the HTTP read timeout in seconds (default: 15)
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds"`
	// WriteTimeoutSeconds is the HTTP write timeout in seconds (default: 30)
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
	// ShutdownTimeoutSeconds bounds graceful shutdown (default: 10)
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// StoreConfig controls the persistence layer
type StoreConfig struct {
	// Path is the SQLite database file path.
	// If empty, defaults to "flowboard.db" under the data directory.
	// Supports ~ for home directory expansion.
	Path string `mapstructure:"path"`
	// BusyTimeoutMs is the SQLite busy timeout in milliseconds (default: 5000)
	BusyTimeoutMs int `mapstructure:"busy_timeout_ms"`
}

// SchedulerConfig controls wave execution behavior
type SchedulerConfig struct {
	// MaxParallel is the maximum number of tasks run concurrently within a
	// wave. 0 means unbounded (default: 4)
	MaxParallel int `mapstructure:"max_parallel"`
	// ExitOnError stops scheduling new waves after the first task failure.
	// In-flight tasks always run to completion (default: false)
	ExitOnError bool `mapstructure:"exit_on_error"`
}

// RecommendConfig controls task recommendation scoring
type RecommendConfig struct {
	// Weights are the scoring signal weights. Zero values fall back to the
	// engine defaults.
	Weights recommend.Weights `mapstructure:"weights"`
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "text" (default: "json")
	Format string `mapstructure:"format"`
	// File is the log file path. Empty writes to stderr (default: "")
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where Flowboard stores data
type PathsConfig struct {
	// DataDir is the directory for the database and other local state.
	// If empty, defaults to the XDG data directory.
	// Supports ~ for home directory expansion.
	DataDir string `mapstructure:"data_dir"`
}

// ResolveDataDir returns the resolved data directory path.
// If DataDir is empty, it returns the XDG data directory.
// If DataDir starts with ~, it expands to the user's home directory.
func (p *PathsConfig) ResolveDataDir() string {
	if p.DataDir == "" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "flowboard")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return ".flowboard"
		}
		return filepath.Join(home, ".local", "share", "flowboard")
	}

	path := p.DataDir
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}
	return path
}

// ResolveStorePath returns the resolved SQLite database path, falling back
// to the default file under the data directory when unset.
func (c *Config) ResolveStorePath() string {
	if c.Store.Path == "" {
		return filepath.Join(c.Paths.ResolveDataDir(), "flowboard.db")
	}

	path := c.Store.Path
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                   "127.0.0.1:7320",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    30,
			ShutdownTimeoutSeconds: 10,
		},
		Store: StoreConfig{
			Path:          "", // Empty means use <data_dir>/flowboard.db
			BusyTimeoutMs: 5000,
		},
		Scheduler: SchedulerConfig{
			MaxParallel: 4,
			ExitOnError: false,
		},
		Recommend: RecommendConfig{
			Weights: recommend.DefaultWeights(),
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Format:     "json",
			File:       "", // Empty means stderr
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			DataDir: "", // Empty means use XDG data directory
		},
	}
}

// ReadTimeout returns the server read timeout as a time.Duration
func (c *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout as a time.Duration
func (c *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown window as a time.Duration
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// BusyTimeout returns the SQLite busy timeout as a time.Duration
func (c *StoreConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.read_timeout_seconds", defaults.Server.ReadTimeoutSeconds)
	viper.SetDefault("server.write_timeout_seconds", defaults.Server.WriteTimeoutSeconds)
	viper.SetDefault("server.shutdown_timeout_seconds", defaults.Server.ShutdownTimeoutSeconds)

	// Store defaults
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("store.busy_timeout_ms", defaults.Store.BusyTimeoutMs)

	// Scheduler defaults
	viper.SetDefault("scheduler.max_parallel", defaults.Scheduler.MaxParallel)
	viper.SetDefault("scheduler.exit_on_error", defaults.Scheduler.ExitOnError)

	// Recommend defaults
	viper.SetDefault("recommend.weights.priority", defaults.Recommend.Weights.Priority)
	viper.SetDefault("recommend.weights.due", defaults.Recommend.Weights.Due)
	viper.SetDefault("recommend.weights.fan_out", defaults.Recommend.Weights.FanOut)
	viper.SetDefault("recommend.weights.in_progress_boost", defaults.Recommend.Weights.InProgressBoost)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flowboard")
	}
	// Fall back to ~/.config/flowboard
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowboard"
	}
	return filepath.Join(home, ".config", "flowboard")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
