package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.AuthMode != AuthModeJWT {
		t.Errorf("expected jwt auth mode, got %s", cfg.AuthMode)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected empty DATABASE_URL, got %s", cfg.DatabaseURL)
	}
}

func TestLoadFromEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("PORT=9000\nRATE_LIMIT_RPS=5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTH_MODE", "Remote")
	t.Setenv("TOKEN_TTL", "90m")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port from file, got %s", cfg.Port)
	}
	if cfg.RateLimitRPS != 5 {
		t.Errorf("expected rps 5, got %v", cfg.RateLimitRPS)
	}
	if cfg.AuthMode != AuthModeRemote {
		t.Errorf("expected remote, got %s", cfg.AuthMode)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("expected 90m, got %s", cfg.TokenTTL)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Env: "production", AuthMode: AuthModeJWT, TokenTTL: time.Hour}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }, true},
		{"long secret", func(c *Config) { c.JWTSecret = "0123456789abcdef0123456789abcdef" }, false},
		{"short secret in development", func(c *Config) { c.Env = "development" }, false},
		{"remote without url", func(c *Config) { c.AuthMode = AuthModeRemote }, true},
		{"remote configured", func(c *Config) {
			c.AuthMode, c.IAMBaseURL, c.IAMAPIKey = AuthModeRemote, "http://iam", "key"
		}, false},
		{"dev mode outside development", func(c *Config) { c.AuthMode = AuthModeDev }, true},
		{"unknown mode", func(c *Config) { c.AuthMode = "ldap" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
