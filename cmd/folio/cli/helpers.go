package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/folio-cms/folio/internal/config"
	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
)

// loadConfig decodes the effective configuration. The --data-dir flag wins
// over store.data_dir, which falls back to ~/.folio.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	cfg.Store.DataDir = resolveDataDir(cfg.Store.DataDir)
	return cfg, nil
}

// resolveDataDir returns the data directory from --data-dir, the
// configured value, or ~/.folio as fallback.
func resolveDataDir(configured string) string {
	if dataDir != "" {
		return dataDir
	}
	if configured != "" {
		return configured
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".folio")
}

// newLogger builds the process logger from the log section. dev forces
// debug level.
func newLogger(cfg config.LogConfig, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openStore opens the configured store and applies the schema.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		DataDir:         cfg.Store.DataDir,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newAuthService resolves the signing secret and builds the auth service.
func newAuthService(ctx context.Context, st *store.Store, cfg *config.Config) (*service.AuthService, error) {
	secret, err := service.ResolveSecret(ctx, st, cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("resolve jwt secret: %w", err)
	}
	return service.NewAuthService(st, secret, cfg.Auth.TokenTTL), nil
}

// recorderConfig maps the analytics section onto the recorder's tuning.
func recorderConfig(cfg config.AnalyticsConfig) service.RecorderConfig {
	return service.RecorderConfig{
		QueueSize:      cfg.QueueSize,
		BatchSize:      cfg.BatchSize,
		FlushInterval:  cfg.FlushInterval,
		SessionTimeout: cfg.SessionTimeout,
		StatsCacheTTL:  cfg.StatsCacheTTL,
		RecentVisitors: cfg.RecentVisitors,
	}
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
