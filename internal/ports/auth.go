package ports

// Package ports defines interfaces (hexagonal ports) for SSO session behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import "context"

// Storage is one origin's durable key-value area.
// Namespacing between applications (or browser clients) is the adapter's job;
// callers only see the keys configured for the session store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes every listed key; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Navigator is the page's view of its own address bar.
type Navigator interface {
	// CurrentURL returns the absolute URL of the current page.
	CurrentURL() string
	// ReplaceURL rewrites the current history entry without navigating.
	ReplaceURL(u string)
	// Redirect navigates away. It is terminal for the current page.
	Redirect(u string)
}

// VisibilitySource notifies subscribers when the page regains foreground visibility.
type VisibilitySource interface {
	// OnVisible registers fn and returns a function that detaches it.
	OnVisible(fn func(ctx context.Context)) (detach func())
}
