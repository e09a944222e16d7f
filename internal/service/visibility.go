package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/target/mmk-sso/internal/ports"
)

// Revalidator is the part of SessionAuthority the visibility revalidator drives.
type Revalidator interface {
	Revalidate(ctx context.Context) bool
}

// VisibilityRevalidatorOptions groups dependencies for VisibilityRevalidator.
type VisibilityRevalidatorOptions struct {
	Authority Revalidator
	Source    ports.VisibilitySource
	// Enabled mirrors the revalidate-on-focus setting. When false Arm does nothing.
	Enabled bool
	Logger  *slog.Logger
}

// VisibilityRevalidator asks the authority to revalidate whenever the page
// regains foreground visibility. It never polls.
type VisibilityRevalidator struct {
	authority Revalidator
	source    ports.VisibilitySource
	enabled   bool
	logger    *slog.Logger

	mu     sync.Mutex
	detach func()
}

// NewVisibilityRevalidator constructs a VisibilityRevalidator.
func NewVisibilityRevalidator(opts VisibilityRevalidatorOptions) (*VisibilityRevalidator, error) {
	if opts.Authority == nil {
		return nil, errors.New("authority is required")
	}
	if opts.Source == nil {
		return nil, errors.New("visibility source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &VisibilityRevalidator{
		authority: opts.Authority,
		source:    opts.Source,
		enabled:   opts.Enabled,
		logger:    logger,
	}, nil
}

// Arm subscribes to visibility events. Arming again replaces the previous subscription.
func (v *VisibilityRevalidator) Arm() {
	if !v.enabled {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.detach != nil {
		v.detach()
	}
	v.detach = v.source.OnVisible(v.onVisible)
}

// Armed reports whether a subscription is active.
func (v *VisibilityRevalidator) Armed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.detach != nil
}

// Detach removes the subscription. It is safe to call more than once.
func (v *VisibilityRevalidator) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.detach != nil {
		v.detach()
		v.detach = nil
	}
}

func (v *VisibilityRevalidator) onVisible(ctx context.Context) {
	if ok := v.authority.Revalidate(ctx); !ok {
		v.logger.DebugContext(ctx, "revalidation on focus did not confirm session")
	}
}
