package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q", cfg.Server.APIBaseURL)
	}
	if cfg.Server.RequestTimeoutSec != 10 {
		t.Errorf("RequestTimeoutSec = %d, want 10", cfg.Server.RequestTimeoutSec)
	}
	if cfg.Server.ReconnectDelaySec != 5 {
		t.Errorf("ReconnectDelaySec = %d, want 5", cfg.Server.ReconnectDelaySec)
	}
	if cfg.Display.Theme != "auto" {
		t.Errorf("Theme = %q, want auto", cfg.Display.Theme)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TEAMHUB_API_URL", "https://api.example.com")
	t.Setenv("TEAMHUB_WS_URL", "wss://api.example.com/ws")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.Server.APIBaseURL)
	}
	if cfg.Server.RealtimeURL != "wss://api.example.com/ws" {
		t.Errorf("RealtimeURL = %q", cfg.Server.RealtimeURL)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  api_base_url: http://backend:9090\n  request_timeout_sec: 3\ndisplay:\n  theme: dark\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.APIBaseURL != "http://backend:9090" {
		t.Errorf("APIBaseURL = %q", cfg.Server.APIBaseURL)
	}
	if cfg.Server.RequestTimeoutSec != 3 {
		t.Errorf("RequestTimeoutSec = %d, want 3", cfg.Server.RequestTimeoutSec)
	}
	if cfg.Display.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", cfg.Display.Theme)
	}
	if cfg.Server.ReconnectDelaySec != 5 {
		t.Errorf("ReconnectDelaySec = %d, want default 5", cfg.Server.ReconnectDelaySec)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Display.Theme = "light"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	if loaded.Display.Theme != "light" {
		t.Errorf("Theme = %q, want light", loaded.Display.Theme)
	}
}
