package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrNoConfig          = errors.New("config file not found")
	ErrNoAPIKey          = errors.New("api_key not set in config")
	ErrInvalidJSON       = errors.New("invalid config JSON")
	ErrInvalidCreativity = errors.New("default_creativity must be between 1 and 10")
)

// Config holds the global Creative Muse backend configuration.
type Config struct {
	APIKey             string `json:"api_key"`
	BaseURL            string `json:"base_url"`
	DefaultModel       string `json:"default_model"`
	DefaultCategory    string `json:"default_category"`
	DefaultLanguage    string `json:"default_language"`
	DefaultCreativity  int    `json:"default_creativity"`       // 1-10 scale passed to the generation service
	Stream             *bool  `json:"stream"`                   // Prefer streaming generation (default: true)
	SessionTimeoutSecs int    `json:"session_timeout_seconds"`  // Max duration of one generation session (default: 60)
	Offline            bool   `json:"offline"`                  // Local mock generation only; api_key not required
}

// Load reads the config from ~/.config/muse/config.json.
// MUSE_API_KEY overrides the api_key field when set.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(homeDir, ".config", "muse", "config.json")
	return LoadFrom(configPath)
}

// LoadFrom reads the config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, ErrInvalidJSON
	}

	if envKey := os.Getenv("MUSE_API_KEY"); envKey != "" {
		cfg.APIKey = envKey
	}
	if cfg.APIKey == "" && !cfg.Offline {
		return nil, ErrNoAPIKey
	}

	// Set defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000/api/v1"
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "general"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.DefaultCreativity == 0 {
		cfg.DefaultCreativity = 5
	}
	if cfg.Stream == nil {
		t := true
		cfg.Stream = &t
	}
	if cfg.SessionTimeoutSecs == 0 {
		cfg.SessionTimeoutSecs = 60
	}
	if cfg.DefaultCreativity < 1 || cfg.DefaultCreativity > 10 {
		return nil, ErrInvalidCreativity
	}

	return &cfg, nil
}
