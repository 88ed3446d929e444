package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		t.Setenv("MUSE_API_KEY", "")
		path := writeConfig(t, `{
			"api_key": "sk-test-123",
			"base_url": "https://muse.example.com/api/v1",
			"default_model": "gpt-4"
		}`)

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.APIKey != "sk-test-123" {
			t.Errorf("APIKey = %q, want %q", cfg.APIKey, "sk-test-123")
		}
		if cfg.BaseURL != "https://muse.example.com/api/v1" {
			t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://muse.example.com/api/v1")
		}
		if cfg.DefaultModel != "gpt-4" {
			t.Errorf("DefaultModel = %q, want %q", cfg.DefaultModel, "gpt-4")
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		path := writeConfig(t, `{"api_key": "sk-test-123"}`)

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.BaseURL != "http://localhost:8000/api/v1" {
			t.Errorf("BaseURL = %q, want default", cfg.BaseURL)
		}
		if cfg.DefaultCategory != "general" {
			t.Errorf("DefaultCategory = %q, want %q", cfg.DefaultCategory, "general")
		}
		if cfg.DefaultLanguage != "en" {
			t.Errorf("DefaultLanguage = %q, want %q", cfg.DefaultLanguage, "en")
		}
		if cfg.DefaultCreativity != 5 {
			t.Errorf("DefaultCreativity = %d, want 5", cfg.DefaultCreativity)
		}
		if cfg.Stream == nil || !*cfg.Stream {
			t.Errorf("Stream should default to true, got %v", cfg.Stream)
		}
		if cfg.SessionTimeoutSecs != 60 {
			t.Errorf("SessionTimeoutSecs = %d, want 60", cfg.SessionTimeoutSecs)
		}
	})

	t.Run("stream disabled", func(t *testing.T) {
		path := writeConfig(t, `{"api_key": "sk-test-123", "stream": false}`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Stream == nil || *cfg.Stream {
			t.Errorf("Stream should be false, got %v", cfg.Stream)
		}
	})

	t.Run("creativity out of range", func(t *testing.T) {
		path := writeConfig(t, `{"api_key": "sk-test-123", "default_creativity": 11}`)
		_, err := LoadFrom(path)
		if err != ErrInvalidCreativity {
			t.Errorf("error = %v, want ErrInvalidCreativity", err)
		}
	})

	t.Run("offline mode allows missing api_key", func(t *testing.T) {
		path := writeConfig(t, `{"offline": true}`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.Offline {
			t.Error("Offline should be true")
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("MUSE_API_KEY", "sk-env-456")
		path := writeConfig(t, `{"api_key": "sk-file-123"}`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.APIKey != "sk-env-456" {
			t.Errorf("APIKey = %q, want env override", cfg.APIKey)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFrom("/nonexistent/path/config.json")
		if err != ErrNoConfig {
			t.Errorf("error = %v, want ErrNoConfig", err)
		}
	})

	t.Run("missing api_key", func(t *testing.T) {
		t.Setenv("MUSE_API_KEY", "")
		path := writeConfig(t, `{"base_url": "https://muse.example.com"}`)
		_, err := LoadFrom(path)
		if err != ErrNoAPIKey {
			t.Errorf("error = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeConfig(t, `not json`)
		_, err := LoadFrom(path)
		if err != ErrInvalidJSON {
			t.Errorf("error = %v, want ErrInvalidJSON", err)
		}
	})
}
