package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Open    OpenConfig    `mapstructure:"open"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// ServerConfig holds the download server location
type ServerConfig struct {
	URL string `mapstructure:"url"` // e.g. http://127.0.0.1:5000
}

// QueueConfig holds polling configuration
type QueueConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OpenConfig holds the command used to open finished downloads
type OpenConfig struct {
	Command string   `mapstructure:"command"` // empty = system default
	Args    []string `mapstructure:"args"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	ShowService bool `mapstructure:"show_service"`
	ShowIDs     bool `mapstructure:"show_ids"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// CacheConfig holds the local database location
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // empty = memory only
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			PollInterval:   5 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Open: OpenConfig{
			Args: []string{},
		},
		UI: UIConfig{
			ShowService: true,
			ShowIDs:     false,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "haul", "haul.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "haul", "haul.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "haul")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "haul")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "haul", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "haul", "cache")
	}
}

// LoadConfig loads configuration from .env, the config file and the environment
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables take precedence over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides: HAUL_SERVER_URL, HAUL_QUEUE_POLL_INTERVAL, ...
	viper.SetEnvPrefix("HAUL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvKeys()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvKeys makes AutomaticEnv visible to Unmarshal for keys absent from the file
func bindEnvKeys() {
	for _, key := range []string{
		"server.url",
		"queue.poll_interval",
		"queue.request_timeout",
		"open.command",
		"ui.show_service",
		"ui.show_ids",
		"logging.file",
		"logging.level",
		"cache.dir",
	} {
		_ = viper.BindEnv(key)
	}
}

// Validate rejects settings the queue cannot run with
func (c *Config) Validate() error {
	if c.Queue.PollInterval < time.Second {
		return fmt.Errorf("queue.poll_interval must be at least 1s, got %s", c.Queue.PollInterval)
	}
	if c.Queue.RequestTimeout <= 0 {
		return fmt.Errorf("queue.request_timeout must be positive, got %s", c.Queue.RequestTimeout)
	}
	return nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	viper.Set("server.url", cfg.Server.URL)

	viper.Set("queue.poll_interval", cfg.Queue.PollInterval.String())
	viper.Set("queue.request_timeout", cfg.Queue.RequestTimeout.String())

	viper.Set("open.command", cfg.Open.Command)
	viper.Set("open.args", cfg.Open.Args)

	viper.Set("ui.show_service", cfg.UI.ShowService)
	viper.Set("ui.show_ids", cfg.UI.ShowIDs)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	viper.Set("cache.dir", cfg.Cache.Dir)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL is set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != ""
}

// ClearCache removes the local database directory with every server's session and search history
func ClearCache(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(cfg.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
