package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "a-jwt-secret-that-is-long-enough-for-tests"

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
}

// noConfigFile makes Load fall back to the environment alone.
func noConfigFile(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  public_url: "https://links.example.com/"
  read_timeout: "5s"

database:
  path: "/var/lib/linkify/linkify.db"

auth:
  jwt_secret: "a-jwt-secret-that-is-long-enough-for-tests"
  token_ttl: "12h"
  github_client_id: "gh-id"
  github_client_secret: "gh-secret"

redis:
  addr: "localhost:6379"
  profile_ttl: "5m"

upload:
  backend: "s3"
  s3_bucket: "linkify-assets"
  s3_public_url: "https://cdn.example.com"

rate_limit:
  click_rps: 1.5
  click_burst: 3

log:
  level: "debug"
  format: "json"
`

func TestLoad_ValidYAML(t *testing.T) {
	path := writeYAML(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("server addr = %q", cfg.Server.Addr())
	}
	if cfg.Server.BaseURL() != "https://links.example.com" {
		t.Errorf("base url = %q", cfg.Server.BaseURL())
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("server.write_timeout = %v, want 30s (default)", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Path != "/var/lib/linkify/linkify.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("auth.token_ttl = %v, want 12h", cfg.Auth.TokenTTL)
	}
	if !cfg.GitHubEnabled() {
		t.Error("GitHub login should be enabled")
	}
	if !cfg.Redis.Enabled() || cfg.Redis.ProfileTTL != 5*time.Minute {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Upload.Backend != BackendS3 || cfg.Upload.S3Region != "us-east-1" {
		t.Errorf("upload = %+v", cfg.Upload)
	}
	if cfg.RateLimit.ClickRPS != 1.5 || cfg.RateLimit.ClickBurst != 3 {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeYAML(t, validYAML))
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("server.port = %d, want 3000 (ENV override)", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn (ENV override)", cfg.Log.Level)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)
	noConfigFile(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Server.BaseURL() != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.Server.BaseURL())
	}
	if cfg.Upload.Backend != BackendLocal {
		t.Errorf("upload.backend = %q, want local (default)", cfg.Upload.Backend)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled without REDIS_ADDR")
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("auth.token_ttl = %v, want 24h (default)", cfg.Auth.TokenTTL)
	}
	if cfg.Server.TrustProxy {
		t.Error("server.trust_proxy should default to false")
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	noConfigFile(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "jwt_secret"},
		{"port out of range", map[string]string{"PORT": "70000"}, "server.port"},
		{"relative public url", map[string]string{"PUBLIC_URL": "links.example.com"}, "public_url"},
		{"half github config", map[string]string{"GITHUB_CLIENT_ID": "id"}, "github_client_id"},
		{"unknown backend", map[string]string{"UPLOAD_BACKEND": "ftp"}, "backend must be"},
		{"cloudinary without preset", map[string]string{
			"UPLOAD_BACKEND": "cloudinary", "CLOUDINARY_CLOUD_NAME": "demo"}, "cloudinary_upload_preset"},
		{"s3 without bucket", map[string]string{"UPLOAD_BACKEND": "s3"}, "s3_bucket"},
		{"negative rate", map[string]string{"CLICK_RATE_LIMIT": "-1"}, "click_rps"},
		{"zero burst", map[string]string{"CLICK_RATE_BURST": "0"}, "click_burst"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "log.level"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validEnv(t)
			noConfigFile(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ZeroRateDisablesLimit(t *testing.T) {
	validEnv(t)
	noConfigFile(t)
	t.Setenv("CLICK_RATE_LIMIT", "0")
	t.Setenv("CLICK_RATE_BURST", "0")

	if _, err := Load(""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]string{"debug": "DEBUG", "INFO": "INFO", "warn": "WARN", "error": "ERROR"} {
		if got := (LogConfig{Level: level}).SlogLevel().String(); got != want {
			t.Errorf("SlogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
