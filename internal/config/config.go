// Package config handles meshview configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"
)

// Config holds all settings.
type Config struct {
	Viewer    ViewerConfig    `yaml:"viewer"`
	Backend   BackendConfig   `yaml:"backend"`
	Assistant AssistantConfig `yaml:"assistant"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ViewerConfig holds viewport settings.
type ViewerConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	PixelRatio float64 `yaml:"pixel_ratio"`
	FOV        float64 `yaml:"fov"`
	Padding    float64 `yaml:"padding"`
	Background string  `yaml:"background"`
	AutoRotate bool    `yaml:"auto_rotate"`
	FPS        int     `yaml:"fps"`
	Priority   string  `yaml:"priority"` // wireframe-topmost or result-topmost
}

// BackendConfig holds the design backend connection settings.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AssistantConfig holds model provider settings.
type AssistantConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	CredentialStore string        `yaml:"credential_store"` // memory, file or redis
	CredentialFile  string        `yaml:"credential_file"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisDB         int           `yaml:"redis_db"`
}

// ServerConfig holds stub backend server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	Metrics   bool   `yaml:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Width:      1024,
			Height:     768,
			PixelRatio: 1,
			FOV:        45,
			Padding:    1.1,
			Background: "#1e1e1e",
			AutoRotate: false,
			FPS:        60,
			Priority:   "wireframe-topmost",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Assistant: AssistantConfig{
			Endpoint:        "https://api.openai.com/v1/chat/completions",
			Model:           "gpt-4o-mini",
			Temperature:     0.2,
			Timeout:         60 * time.Second,
			CredentialStore: "memory",
			RedisAddr:       "localhost:6379",
		},
		Server: ServerConfig{
			Addr:    ":8000",
			Metrics: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Viewer.FOV <= 0 || c.Viewer.FOV >= 180 {
		return fmt.Errorf("viewer.fov must be between 0 and 180 degrees, got %v", c.Viewer.FOV)
	}
	if c.Viewer.Padding < 1 {
		return fmt.Errorf("viewer.padding must be at least 1, got %v", c.Viewer.Padding)
	}
	if _, err := c.Viewer.BackgroundColor(); err != nil {
		return err
	}
	switch strings.ToLower(c.Viewer.Priority) {
	case "", "wireframe-topmost", "result-topmost":
	default:
		return fmt.Errorf("viewer.priority must be wireframe-topmost or result-topmost, got %q", c.Viewer.Priority)
	}
	switch c.Assistant.CredentialStore {
	case "", "memory", "file", "redis":
	default:
		return fmt.Errorf("assistant.credential_store must be memory, file or redis, got %q", c.Assistant.CredentialStore)
	}
	return nil
}

// BackgroundColor parses the #rrggbb background color.
func (v ViewerConfig) BackgroundColor() (color.RGBA, error) {
	hex := strings.TrimPrefix(v.Background, "#")
	if hex == "" {
		return color.RGBA{A: 255}, nil
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("viewer.background must be #rrggbb, got %q", v.Background)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("viewer.background must be #rrggbb, got %q", v.Background)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}
