package config

import (
	"fmt"
	"net/url"
	"strings"
)

// MinJWTSecretLength is the shortest accepted JWT_SECRET.
const MinJWTSecretLength = 32

// Validate checks the rules env tags cannot express. Load calls it.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if c.Server.PublicURL != "" {
		if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.public_url must be an absolute URL (got %q)", c.Server.PublicURL)
		}
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters (got %d)",
			MinJWTSecretLength, len(c.Auth.JWTSecret))
	}
	if (c.Auth.GitHubClientID == "") != (c.Auth.GitHubClientSecret == "") {
		return fmt.Errorf("auth: github_client_id and github_client_secret must be set together")
	}

	if err := c.Upload.validate(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if c.RateLimit.ClickRPS < 0 {
		return fmt.Errorf("rate_limit.click_rps must be >= 0 (got %v)", c.RateLimit.ClickRPS)
	}
	if c.RateLimit.ClickRPS > 0 && c.RateLimit.ClickBurst < 1 {
		return fmt.Errorf("rate_limit.click_burst must be >= 1 (got %d)", c.RateLimit.ClickBurst)
	}

	if c.Redis.Enabled() && c.Redis.ProfileTTL <= 0 {
		return fmt.Errorf("redis.profile_ttl must be > 0 (got %s)", c.Redis.ProfileTTL)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error (got %q)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	return nil
}

// GitHubEnabled reports whether the OAuth login routes can be served.
func (c *Config) GitHubEnabled() bool {
	return c.Auth.GitHubClientID != "" && c.Auth.GitHubClientSecret != ""
}

func (u *UploadConfig) validate() error {
	switch u.Backend {
	case BackendLocal:
		if u.LocalDir == "" {
			return fmt.Errorf("local_dir is required for the local backend")
		}
	case BackendCloudinary:
		if u.CloudinaryCloudName == "" || u.CloudinaryUploadPreset == "" {
			return fmt.Errorf("cloudinary_cloud_name and cloudinary_upload_preset are required for the cloudinary backend")
		}
	case BackendS3:
		if u.S3Bucket == "" {
			return fmt.Errorf("s3_bucket is required for the s3 backend")
		}
		if u.S3PublicURL == "" {
			return fmt.Errorf("s3_public_url is required for the s3 backend")
		}
	default:
		return fmt.Errorf("backend must be local, cloudinary or s3 (got %q)", u.Backend)
	}
	return nil
}
