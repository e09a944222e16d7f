package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/target/mmk-sso/config"
	"github.com/target/mmk-sso/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger(envDebug())
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logStartupInfo(ctx, logger, &cfg)

	storage, err := bootstrap.OpenStorage(ctx, bootstrap.StorageConfig{
		Storage: cfg.Storage,
		Redis:   cfg.Redis,
		DB:      cfg.DB,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close storage failed", "error", cerr)
		}
	}()

	satellite, err := bootstrap.BuildSatellite(bootstrap.SatelliteConfig{
		Config:  &cfg,
		Storage: storage.Provider,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunWithShutdown(ctx, bootstrap.RunConfig{
		Addr:      cfg.HTTP.Addr,
		Satellite: satellite,
		Logger:    logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting sso satellite",
		"self_url", cfg.SSO.SelfURL,
		"login_authority_url", cfg.SSO.LoginAuthorityURL,
		"storage_backend", cfg.Storage.Backend,
		"revalidate_on_focus", cfg.SSO.RevalidateOnFocus,
		"dev_authority", cfg.DevAuthority.Enabled)
}

// envDebug reads SSO_DEBUG before the full config is loaded so startup logs honor it.
func envDebug() bool {
	v, err := strconv.ParseBool(os.Getenv("SSO_DEBUG"))
	return err == nil && v
}
