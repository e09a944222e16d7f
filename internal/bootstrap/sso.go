package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-sso/config"
	"github.com/target/mmk-sso/internal/adapters/devauthority"
	httpx "github.com/target/mmk-sso/internal/http"
	"github.com/target/mmk-sso/internal/service"
)

// SatelliteConfig contains everything needed to assemble the satellite.
type SatelliteConfig struct {
	Config  *config.AppConfig
	Storage httpx.StorageProvider
	Logger  *slog.Logger
	// Now overrides the clock for every page authority. Optional.
	Now func() time.Time
}

// Satellite is the assembled HTTP surface of an SSO satellite.
type Satellite struct {
	Handler http.Handler
	Pages   *httpx.PageRegistry
}

// BuildSatellite wires the SSO services into an HTTP handler.
// A missing or unusable login authority address is a redirect_unavailable error.
func BuildSatellite(cfg SatelliteConfig) (*Satellite, error) {
	if cfg.Config == nil {
		return nil, errors.New("app config is required")
	}
	if cfg.Storage == nil {
		return nil, errors.New("storage provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := cfg.Config

	redirects, err := service.NewRedirectProtocol(service.RedirectConfig{
		LoginAuthorityURL: app.SSO.LoginAuthorityURL,
		SelfURL:           app.SSO.SelfURL,
		LoginPath:         app.SSO.LoginPath,
		LogoutPath:        app.SSO.LogoutPath,
	})
	if err != nil {
		return nil, err
	}

	codec, err := service.NewTokenCodecWithClaims(app.SSO.ClaimPaths())
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	pages, err := httpx.NewPageRegistry(httpx.PageRegistryOptions{
		Capacity:          app.HTTP.PageCapacity,
		Codec:             codec,
		Redirects:         redirects,
		Storage:           cfg.Storage,
		TokenKey:          app.SSO.TokenStorageKey,
		UserKey:           app.SSO.UserStorageKey,
		RevalidateOnFocus: app.SSO.RevalidateOnFocus,
		Debug:             app.SSO.Debug,
		Now:               cfg.Now,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("page registry: %w", err)
	}

	sso, err := httpx.NewSSOHandlers(httpx.SSOHandlersOptions{
		Pages:        pages,
		SelfURL:      redirects.SelfURL(),
		CookieDomain: app.HTTP.CookieDomain,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("sso handlers: %w", err)
	}

	services := httpx.RouterServices{
		SSO:    sso,
		Title:  app.HTTP.Title,
		CSRF:   httpx.CSRFConfig{CookieDomain: app.HTTP.CookieDomain},
		Logger: logger,
	}
	if app.DevAuthority.Enabled {
		dev, err := buildDevAuthority(app.DevAuthority, cfg.Now, logger)
		if err != nil {
			return nil, err
		}
		services.DevAuthority = dev
		logger.Warn("development login authority enabled; do not use in production",
			"user_id", app.DevAuthority.UserID)
	}

	return &Satellite{Handler: httpx.NewRouter(services), Pages: pages}, nil
}

func buildDevAuthority(cfg config.DevAuthorityConfig, now func() time.Time, logger *slog.Logger) (*devauthority.Authority, error) {
	opts := []devauthority.Option{devauthority.WithLogger(logger)}
	if now != nil {
		opts = append(opts, devauthority.WithClock(now))
	}
	dev, err := devauthority.New(devauthority.Config{
		UserID:      cfg.UserID,
		DisplayName: cfg.DisplayName,
		Email:       cfg.Email,
		Role:        cfg.Role,
		TokenTTL:    cfg.TokenTTL,
		SigningKey:  cfg.SigningKey,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("dev authority: %w", err)
	}
	return dev, nil
}
