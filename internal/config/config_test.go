package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Viewer.FOV != 45 {
		t.Errorf("expected fov 45, got %v", cfg.Viewer.FOV)
	}
	if cfg.Viewer.Padding != 1.1 {
		t.Errorf("expected padding 1.1, got %v", cfg.Viewer.Padding)
	}
	if cfg.Viewer.Priority != "wireframe-topmost" {
		t.Errorf("expected wireframe-topmost priority, got %s", cfg.Viewer.Priority)
	}
	if cfg.Viewer.AutoRotate {
		t.Error("expected auto_rotate to be false by default")
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("expected backend http://localhost:8000, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 60*time.Second {
		t.Errorf("expected timeout 60s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Assistant.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %s", cfg.Assistant.Model)
	}
	if cfg.Assistant.CredentialStore != "memory" {
		t.Errorf("expected memory credential store, got %s", cfg.Assistant.CredentialStore)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
viewer:
  fov: 60
  auto_rotate: true
  priority: result-topmost
backend:
  base_url: http://backend:9000
  timeout: 5s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if used != path {
		t.Errorf("used path = %s, want %s", used, path)
	}

	// Overridden values
	if cfg.Viewer.FOV != 60 {
		t.Errorf("expected fov 60, got %v", cfg.Viewer.FOV)
	}
	if !cfg.Viewer.AutoRotate {
		t.Error("expected auto_rotate true")
	}
	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Errorf("expected backend override, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Backend.Timeout)
	}

	// Defaults kept for values the file does not set
	if cfg.Viewer.Padding != 1.1 {
		t.Errorf("expected default padding, got %v", cfg.Viewer.Padding)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected default server addr, got %s", cfg.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Viewer.Background = "#102030"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Viewer.Background != "#102030" {
		t.Errorf("expected saved background, got %s", loaded.Viewer.Background)
	}
}

func TestBackgroundColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#1e1e1e", color.RGBA{0x1e, 0x1e, 0x1e, 255}, false},
		{"ff8000", color.RGBA{0xff, 0x80, 0x00, 255}, false},
		{"", color.RGBA{A: 255}, false},
		{"#fff", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ViewerConfig{Background: tt.in}.BackgroundColor()
		if (err != nil) != tt.wantErr {
			t.Errorf("BackgroundColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("BackgroundColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Viewer.FOV = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero fov")
	}

	cfg = Default()
	cfg.Viewer.Priority = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown priority")
	}

	cfg = Default()
	cfg.Assistant.CredentialStore = "vault"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown credential store")
	}
}

func TestConfigDir(t *testing.T) {
	if ConfigDir() == "" {
		t.Error("ConfigDir() returned empty path")
	}
}
