package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	API       APIConfig       `mapstructure:"api" json:"api"`
	Workflow  WorkflowConfig  `mapstructure:"workflow" json:"workflow"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
	Devserver DevserverConfig `mapstructure:"devserver" json:"devserver"`
	Notify    NotifyConfig    `mapstructure:"notify" json:"notify"`
}

// APIConfig backend connection settings
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url" json:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// WorkflowConfig polling settings
type WorkflowConfig struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms" json:"poll_interval_ms"`
	// StoreID scopes the approver terminal. Empty keeps it suspended.
	StoreID string `mapstructure:"store_id" json:"store_id"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file"`
}

// DevserverConfig local reference backend settings
type DevserverConfig struct {
	Host               string `mapstructure:"host" json:"host"`
	Port               int    `mapstructure:"port" json:"port"`
	IssuanceTTLSeconds int    `mapstructure:"issuance_ttl_seconds" json:"issuance_ttl_seconds"`
	RedeemTTLSeconds   int    `mapstructure:"redeem_ttl_seconds" json:"redeem_ttl_seconds"`
}

// NotifyConfig approver alert settings
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
}

// TelegramConfig telegram bot settings
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Token   string `mapstructure:"token" json:"token"`
	ChatID  string `mapstructure:"chat_id" json:"chat_id"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://127.0.0.1:8080",
			TimeoutSeconds: 10,
		},
		Workflow: WorkflowConfig{
			PollIntervalMS: 2000,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Devserver: DevserverConfig{
			Host:               "127.0.0.1",
			Port:               8080,
			IssuanceTTLSeconds: 90,
			RedeemTTLSeconds:   45,
		},
	}
}

// ConfigDir returns the kkookk config directory
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("failed to resolve home directory, using current directory as fallback", "error", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".kkookk")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("KKOOKK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if base == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	c.API.BaseURL = base

	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must not be negative, got %d", c.API.TimeoutSeconds)
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 10
	}

	if c.Workflow.PollIntervalMS < 0 {
		return fmt.Errorf("workflow.poll_interval_ms must not be negative, got %d", c.Workflow.PollIntervalMS)
	}
	if c.Workflow.PollIntervalMS == 0 {
		c.Workflow.PollIntervalMS = 2000
	}
	if c.Workflow.PollIntervalMS < 500 {
		c.Workflow.PollIntervalMS = 500
	}

	c.Workflow.StoreID = strings.TrimSpace(c.Workflow.StoreID)
	if c.Workflow.StoreID != "" {
		if n, err := strconv.ParseInt(c.Workflow.StoreID, 10, 64); err != nil || n <= 0 {
			return fmt.Errorf("workflow.store_id must be a positive integer, got %q", c.Workflow.StoreID)
		}
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	if c.Devserver.Port <= 0 || c.Devserver.Port > 65535 {
		return fmt.Errorf("devserver.port must be between 1 and 65535, got %d", c.Devserver.Port)
	}
	if c.Devserver.IssuanceTTLSeconds <= 0 {
		c.Devserver.IssuanceTTLSeconds = 90
	}
	if c.Devserver.RedeemTTLSeconds <= 0 {
		c.Devserver.RedeemTTLSeconds = 45
	}

	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.Token) == "" {
			return fmt.Errorf("notify.telegram.token is required when telegram is enabled")
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(c.Notify.Telegram.ChatID), 10, 64); err != nil {
			return fmt.Errorf("notify.telegram.chat_id must be numeric, got %q", c.Notify.Telegram.ChatID)
		}
	}

	return nil
}

// Timeout returns the HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PollInterval returns the workflow poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollIntervalMS) * time.Millisecond
}

// DevserverAddr returns host:port for the reference backend.
func (c *Config) DevserverAddr() string {
	return fmt.Sprintf("%s:%d", c.Devserver.Host, c.Devserver.Port)
}
