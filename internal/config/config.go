package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Bot     BotConfig     `mapstructure:"bot"`
	Log     LogConfig     `mapstructure:"log"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	SSH     SSHConfig     `mapstructure:"ssh"`
	Session SessionConfig `mapstructure:"session"`
}

// APIConfig holds the hosting service API configuration
type APIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Key     string `mapstructure:"key" validate:"required"`
	Timeout int    `mapstructure:"timeout" validate:"gt=0"`
}

// BotConfig holds conversation behaviour settings
type BotConfig struct {
	PageSize          int           `mapstructure:"page_size" validate:"gt=0,lte=100"`
	PollInterval      time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	WelcomeImageURL   string        `mapstructure:"welcome_image_url" validate:"omitempty,url"`
	CanonicalLinkHost string        `mapstructure:"canonical_link_host" validate:"omitempty,hostname"`
	DisplayLinkHost   string        `mapstructure:"display_link_host" validate:"omitempty,hostname"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GatewayConfig holds the HTTP gateway configuration
type GatewayConfig struct {
	Addr  string `mapstructure:"addr" validate:"required"`
	Token string `mapstructure:"token"`
	Mode  string `mapstructure:"mode" validate:"oneof=release debug test"`
}

// SSHConfig holds the SSH console configuration
type SSHConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Addr        string `mapstructure:"addr" validate:"required_if=Enabled true"`
	HostKeyPath string `mapstructure:"host_key_path"`
}

// SessionConfig controls how long idle conversations are kept in memory
type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl" validate:"gt=0"`
	SweepSchedule string        `mapstructure:"sweep_schedule" validate:"required"`
}

// Load loads configuration from multiple sources with priority:
// 1. Command line flags (highest)
// 2. Environment variables (including a local .env file)
// 3. Configuration file
// 4. Defaults (lowest)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Set environment variable prefix
	v.SetEnvPrefix("FMBOT")
	v.AutomaticEnv()

	// Environment variable mappings
	v.BindEnv("api.base_url", "FMBOT_API_BASE_URL")
	v.BindEnv("api.key", "FMBOT_API_KEY", "API_KEY")
	v.BindEnv("api.timeout", "FMBOT_API_TIMEOUT")
	v.BindEnv("bot.page_size", "FMBOT_PAGE_SIZE", "PAGE_SIZE")
	v.BindEnv("bot.poll_interval", "FMBOT_POLL_INTERVAL")
	v.BindEnv("bot.welcome_image_url", "FMBOT_WELCOME_IMAGE_URL", "IMAGE_URL")
	v.BindEnv("bot.canonical_link_host", "FMBOT_CANONICAL_LINK_HOST")
	v.BindEnv("bot.display_link_host", "FMBOT_DISPLAY_LINK_HOST")
	v.BindEnv("log.level", "FMBOT_LOG_LEVEL")
	v.BindEnv("log.format", "FMBOT_LOG_FORMAT")
	v.BindEnv("gateway.addr", "FMBOT_GATEWAY_ADDR")
	v.BindEnv("gateway.token", "FMBOT_GATEWAY_TOKEN")
	v.BindEnv("gateway.mode", "FMBOT_GATEWAY_MODE")
	v.BindEnv("ssh.enabled", "FMBOT_SSH_ENABLED")
	v.BindEnv("ssh.addr", "FMBOT_SSH_ADDR")
	v.BindEnv("ssh.host_key_path", "FMBOT_SSH_HOST_KEY_PATH")
	v.BindEnv("session.idle_ttl", "FMBOT_SESSION_IDLE_TTL")
	v.BindEnv("session.sweep_schedule", "FMBOT_SESSION_SWEEP_SCHEDULE")

	// Configuration file handling
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")

		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.fmbot")
		v.AddConfigPath("/etc/fmbot/")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we can use defaults and env vars
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", "https://filemoonapi.com/api")
	v.SetDefault("api.timeout", 30)

	// Bot defaults
	v.SetDefault("bot.page_size", 10)
	v.SetDefault("bot.poll_interval", 3*time.Second)
	v.SetDefault("bot.welcome_image_url", "")
	v.SetDefault("bot.canonical_link_host", "filemoon.sx")
	v.SetDefault("bot.display_link_host", "filemoon.in")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Gateway defaults
	v.SetDefault("gateway.addr", ":8080")
	v.SetDefault("gateway.mode", "release")

	// SSH defaults
	v.SetDefault("ssh.enabled", false)
	v.SetDefault("ssh.addr", ":2222")
	v.SetDefault("ssh.host_key_path", "")

	// Session defaults
	v.SetDefault("session.idle_ttl", 24*time.Hour)
	v.SetDefault("session.sweep_schedule", "@every 10m")
}

// RequestTimeout returns the API timeout as a duration
func (c *APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(homeDir, ".fmbot", "config.toml")
}
