package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Workflow.NavigationSettle != 500*time.Millisecond {
		t.Errorf("navigation settle = %v, want 500ms", cfg.Workflow.NavigationSettle)
	}
	if cfg.Workflow.SearchSettle != 300*time.Millisecond {
		t.Errorf("search settle = %v, want 300ms", cfg.Workflow.SearchSettle)
	}
	if cfg.Workflow.StepDelay != 800*time.Millisecond {
		t.Errorf("step delay = %v, want 800ms", cfg.Workflow.StepDelay)
	}
	if cfg.Gemini.Temperature != 0.7 || cfg.Gemini.TopK != 40 {
		t.Errorf("gemini generation defaults = %+v", cfg.Gemini)
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
identity:
  secret: test-secret
backend:
  base_url: http://backend:3000
  timeout: 5s
gemini:
  api_key: real-key
workflow:
  step_delay: 250ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://backend:3000" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.Backend.Timeout)
	}
	if cfg.Workflow.StepDelay != 250*time.Millisecond {
		t.Errorf("step_delay = %v, want 250ms", cfg.Workflow.StepDelay)
	}
	// Unset fields keep defaults.
	if cfg.Workflow.SearchSettle != 300*time.Millisecond {
		t.Errorf("search_settle = %v, want default 300ms", cfg.Workflow.SearchSettle)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid with secret",
			mutate: func(c *Config) { c.Identity.Secret = "s" },
		},
		{
			name:   "valid with jwks",
			mutate: func(c *Config) { c.Identity.JWKSURL = "https://idp/jwks" },
		},
		{
			name:    "no identity source",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "bad port",
			mutate: func(c *Config) {
				c.Identity.Secret = "s"
				c.Server.Port = 0
			},
			wantErr: true,
		},
		{
			name: "missing backend url",
			mutate: func(c *Config) {
				c.Identity.Secret = "s"
				c.Backend.BaseURL = ""
			},
			wantErr: true,
		},
		{
			name: "negative step delay",
			mutate: func(c *Config) {
				c.Identity.Secret = "s"
				c.Workflow.StepDelay = -time.Second
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
identity:
  secret: file-secret
backend:
  base_url: http://from-file:3000
`)

	t.Setenv("ASSISTD_SERVER_PORT", "7070")
	t.Setenv("ASSISTD_BACKEND_BASE_URL", "http://from-env:4000")
	t.Setenv("ASSISTD_GEMINI_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://from-env:4000" {
		t.Errorf("base_url = %q, want env override", cfg.Backend.BaseURL)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("api_key = %q, want env override", cfg.Gemini.APIKey)
	}
}

func TestGeminiConfigured(t *testing.T) {
	cfg := Defaults()
	if cfg.GeminiConfigured() {
		t.Error("empty key should not count as configured")
	}
	cfg.Gemini.APIKey = "your_api_key_here"
	if cfg.GeminiConfigured() {
		t.Error("placeholder key should not count as configured")
	}
	cfg.Gemini.APIKey = "AIza-real"
	if !cfg.GeminiConfigured() {
		t.Error("real key should count as configured")
	}
}
