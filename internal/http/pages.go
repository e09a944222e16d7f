package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/target/mmk-sso/internal/adapters/browser"
	"github.com/target/mmk-sso/internal/ports"
	"github.com/target/mmk-sso/internal/service"
)

const minPageCapacity = 16

// Page is the server-side twin of one loaded browser page.
type Page struct {
	ClientID    string
	Authority   *service.SessionAuthority
	Navigator   *browser.Navigator
	Visibility  *browser.VisibilityEvents
	Revalidator *service.VisibilityRevalidator
}

// Close detaches the page's focus listener.
func (p *Page) Close() {
	if p != nil && p.Revalidator != nil {
		p.Revalidator.Detach()
	}
}

// StorageProvider returns the storage area shared by every page of one client.
type StorageProvider func(namespace string) ports.Storage

// PageRegistryOptions groups dependencies for PageRegistry.
type PageRegistryOptions struct {
	Capacity          int
	Codec             *service.TokenCodec
	Redirects         *service.RedirectProtocol
	Storage           StorageProvider
	TokenKey          string
	UserKey           string
	RevalidateOnFocus bool
	Debug             bool
	Now               func() time.Time
	Logger            *slog.Logger
}

// PageRegistry builds page twins and keeps the most recent one per client.
// A page pushed out of the registry, by capacity or by a newer load, is closed.
type PageRegistry struct {
	opts PageRegistryOptions

	mu    sync.Mutex
	pages *lru.Cache[string, *Page]
}

// NewPageRegistry constructs a PageRegistry.
func NewPageRegistry(opts PageRegistryOptions) (*PageRegistry, error) {
	if opts.Redirects == nil {
		return nil, errors.New("redirect protocol is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("storage provider is required")
	}
	if opts.Codec == nil {
		opts.Codec = service.NewTokenCodec()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Capacity < minPageCapacity {
		opts.Capacity = minPageCapacity
	}

	pages, err := lru.NewWithEvict(opts.Capacity, func(_ string, p *Page) { p.Close() })
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	return &PageRegistry{opts: opts, pages: pages}, nil
}

// Open builds a fresh page for clientID positioned at currentURL and makes it
// the client's current page. The authority is not initialized.
func (r *PageRegistry) Open(clientID, currentURL string) (*Page, error) {
	page, err := r.build(clientID, currentURL)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Add does not run the eviction callback when it overwrites a key.
	if prev, ok := r.pages.Peek(clientID); ok {
		prev.Close()
	}
	r.pages.Add(clientID, page)
	return page, nil
}

// Get returns the client's current page.
func (r *PageRegistry) Get(clientID string) (*Page, bool) {
	return r.pages.Get(clientID)
}

// Remove closes and forgets the client's current page.
func (r *PageRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages.Remove(clientID)
}

// Len returns the number of live pages.
func (r *PageRegistry) Len() int { return r.pages.Len() }

// Purge closes every page.
func (r *PageRegistry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages.Purge()
}

func (r *PageRegistry) build(clientID, currentURL string) (*Page, error) {
	logger := r.opts.Logger.With("client_id", clientID)

	store, err := service.NewSessionStore(service.SessionStoreOptions{
		Storage:  r.opts.Storage(clientID),
		TokenKey: r.opts.TokenKey,
		UserKey:  r.opts.UserKey,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	nav := browser.NewNavigator(currentURL)
	authority, err := service.NewSessionAuthority(service.SessionAuthorityOptions{
		Codec:     r.opts.Codec,
		Store:     store,
		Redirects: r.opts.Redirects,
		Navigator: nav,
		Now:       r.opts.Now,
		Logger:    logger,
		Debug:     r.opts.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("session authority: %w", err)
	}

	visibility := browser.NewVisibilityEvents()
	revalidator, err := service.NewVisibilityRevalidator(service.VisibilityRevalidatorOptions{
		Authority: authority,
		Source:    visibility,
		Enabled:   r.opts.RevalidateOnFocus,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("visibility revalidator: %w", err)
	}
	revalidator.Arm()

	return &Page{
		ClientID:    clientID,
		Authority:   authority,
		Navigator:   nav,
		Visibility:  visibility,
		Revalidator: revalidator,
	}, nil
}
