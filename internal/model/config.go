package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Default endpoints for local development against a backend started
// with its stock configuration.
const (
	DefaultAPIBaseURL  = "http://localhost:8080"
	DefaultRealtimeURL = "ws://localhost:8080/ws"
)

// ServerConfig holds the endpoints of the backend the client talks to.
type ServerConfig struct {
	// APIBaseURL is the root URL of the REST API.
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`

	// RealtimeURL is the WebSocket endpoint for push delivery.
	RealtimeURL string `mapstructure:"realtime_url" yaml:"realtime_url"`

	// RequestTimeoutSec bounds every REST call.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`

	// ReconnectDelaySec is the fixed pause between realtime reconnect attempts.
	ReconnectDelaySec int `mapstructure:"reconnect_delay_sec" yaml:"reconnect_delay_sec"`
}

// DisplayConfig holds UI preferences persisted across sessions.
type DisplayConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig controls the client-side log file.
type LogConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/teamhub/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "teamhub", "config.yaml")
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			APIBaseURL:        DefaultAPIBaseURL,
			RealtimeURL:       DefaultRealtimeURL,
			RequestTimeoutSec: 10,
			ReconnectDelaySec: 5,
		},
		Display: DisplayConfig{Theme: "auto"},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Missing files resolve to defaults. The environment variables
// TEAMHUB_API_URL and TEAMHUB_WS_URL override the server endpoints.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.api_base_url", DefaultAPIBaseURL)
	v.SetDefault("server.realtime_url", DefaultRealtimeURL)
	v.SetDefault("server.request_timeout_sec", 10)
	v.SetDefault("server.reconnect_delay_sec", 5)
	v.SetDefault("display.theme", "auto")
	v.SetDefault("log.level", "info")

	if err := v.BindEnv("server.api_base_url", "TEAMHUB_API_URL"); err != nil {
		return nil, fmt.Errorf("binding TEAMHUB_API_URL: %w", err)
	}
	if err := v.BindEnv("server.realtime_url", "TEAMHUB_WS_URL"); err != nil {
		return nil, fmt.Errorf("binding TEAMHUB_WS_URL: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			cfg := defaultAppConfig()
			applyEnvOverrides(v, cfg)
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := defaultAppConfig()
			applyEnvOverrides(v, cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// applyEnvOverrides copies bound environment values into a default
// config when no file was present to trigger viper's unmarshal path.
func applyEnvOverrides(v *viper.Viper, cfg *AppConfig) {
	if u := v.GetString("server.api_base_url"); u != "" {
		cfg.Server.APIBaseURL = u
	}
	if u := v.GetString("server.realtime_url"); u != "" {
		cfg.Server.RealtimeURL = u
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Used to persist the theme
// preference.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
