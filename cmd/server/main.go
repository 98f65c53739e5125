// Command server runs the linkify HTTP API.
//
// main only reads configuration, builds the long-lived resources (logger,
// database, cache, file host, OAuth client) and hands them to
// internal/server. All behaviour lives in the internal packages.
//
// Usage:
//
//	server [--config config.yaml] [--env-file .env] [--port 8080]
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/sakif/linkify/internal/auth"
	"github.com/sakif/linkify/internal/cache"
	"github.com/sakif/linkify/internal/config"
	"github.com/sakif/linkify/internal/metrics"
	sqliteRepo "github.com/sakif/linkify/internal/repository/sqlite"
	"github.com/sakif/linkify/internal/server"
	"github.com/sakif/linkify/internal/upload"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file (default $CONFIG_PATH or ./config.yaml)")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	port := pflag.Int("port", 0, "listen port, overrides PORT")
	pflag.Parse()

	// A missing default .env is normal; a missing named one is not.
	if err := godotenv.Load(*envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || pflag.CommandLine.Changed("env-file") {
			fmt.Fprintf(os.Stderr, "loading %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}
	if *port != 0 {
		os.Setenv("PORT", strconv.Itoa(*port))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	profiles, err := newProfileCache(ctx, cfg.Redis, logger)
	if err != nil {
		db.Close()
		return err
	}

	host, err := newFileHost(cfg)
	if err != nil {
		db.Close()
		return err
	}

	deps := server.Deps{
		DB:       db,
		Profiles: profiles,
		Host:     host,
		Metrics:  metrics.New(),
	}
	if cfg.GitHubEnabled() {
		callback := cfg.Auth.GitHubCallbackURL
		if callback == "" {
			callback = cfg.Server.BaseURL() + "/auth/github/callback"
		}
		deps.GitHub = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, callback)
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		db.Close()
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM and closes the database on the way out.
	return srv.Start()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newProfileCache connects to Redis when configured. An unreachable Redis
// is logged and the server runs without a cache.
func newProfileCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (cache.ProfileCache, error) {
	if !cfg.Enabled() {
		logger.Info("profile cache disabled (REDIS_ADDR not set)")
		return cache.Noop{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	rc := cache.NewRedis(client, cfg.ProfileTTL)
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("redis unreachable; continuing without profile cache",
			slog.String("addr", cfg.Addr),
			slog.String("error", err.Error()),
		)
		client.Close()
		return cache.Noop{}, nil
	}

	logger.Info("profile cache enabled", slog.String("addr", cfg.Addr))
	return rc, nil
}

func newFileHost(cfg *config.Config) (upload.FileHost, error) {
	u := cfg.Upload
	switch u.Backend {
	case config.BackendCloudinary:
		return upload.NewCloudinary(u.CloudinaryCloudName, u.CloudinaryUploadPreset, u.Folder), nil
	case config.BackendS3:
		host, err := upload.NewS3(u.S3Region, u.S3Bucket, u.Folder, u.S3PublicURL)
		if err != nil {
			return nil, fmt.Errorf("creating S3 uploader: %w", err)
		}
		return host, nil
	default:
		host, err := upload.NewLocal(u.LocalDir, cfg.Server.BaseURL())
		if err != nil {
			return nil, fmt.Errorf("creating local uploader: %w", err)
		}
		return host, nil
	}
}
