// Package config loads the server configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Upload backends accepted in UPLOAD_BACKEND.
const (
	BackendLocal      = "local"
	BackendCloudinary = "cloudinary"
	BackendS3         = "s3"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	Upload    UploadConfig    `yaml:"upload"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	PublicURL       string        `yaml:"public_url"       env:"PUBLIC_URL"`
	CookieSecure    bool          `yaml:"cookie_secure"    env:"COOKIE_SECURE"           env-default:"false"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy      bool          `yaml:"trust_proxy"      env:"TRUST_PROXY"             env-default:"false"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Addr is the listen address, e.g. ":8080".
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is PublicURL without a trailing slash, or http://localhost:<port>.
func (s ServerConfig) BaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimRight(s.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DB_PATH" env-default:"data/linkify.db"`
}

// AuthConfig holds session and GitHub OAuth settings.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"           env:"JWT_SECRET"           env-required:"true"`
	TokenTTL           time.Duration `yaml:"token_ttl"            env:"JWT_TTL"              env-default:"24h"`
	GitHubClientID     string        `yaml:"github_client_id"     env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `yaml:"github_client_secret" env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `yaml:"github_callback_url"  env:"GITHUB_CALLBACK_URL"`
}

// RedisConfig holds the profile cache settings. An empty Addr disables the
// cache.
type RedisConfig struct {
	Addr       string        `yaml:"addr"        env:"REDIS_ADDR"`
	Password   string        `yaml:"password"    env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db"          env:"REDIS_DB"          env-default:"0"`
	ProfileTTL time.Duration `yaml:"profile_ttl" env:"REDIS_PROFILE_TTL" env-default:"10m"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// UploadConfig selects and configures the file host.
type UploadConfig struct {
	Backend  string `yaml:"backend"   env:"UPLOAD_BACKEND" env-default:"local"`
	Folder   string `yaml:"folder"    env:"UPLOAD_FOLDER"  env-default:"linkify"`
	LocalDir string `yaml:"local_dir" env:"UPLOAD_DIR"     env-default:"data/uploads"`

	CloudinaryCloudName    string `yaml:"cloudinary_cloud_name"    env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryUploadPreset string `yaml:"cloudinary_upload_preset" env:"CLOUDINARY_UPLOAD_PRESET"`

	S3Region    string `yaml:"s3_region"     env:"S3_REGION"     env-default:"us-east-1"`
	S3Bucket    string `yaml:"s3_bucket"     env:"S3_BUCKET"`
	S3PublicURL string `yaml:"s3_public_url" env:"S3_PUBLIC_URL"`
}

// RateLimitConfig limits anonymous click requests per client IP. A zero
// ClickRPS disables the limit.
type RateLimitConfig struct {
	ClickRPS   float64 `yaml:"click_rps"   env:"CLICK_RATE_LIMIT" env-default:"2"`
	ClickBurst int     `yaml:"click_burst" env:"CLICK_RATE_BURST" env-default:"10"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// SlogLevel maps Level onto slog. Unknown values were rejected by Validate.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
