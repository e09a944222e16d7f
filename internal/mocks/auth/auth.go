package auth

// Package auth contains simple hand-written test doubles for SSO ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	"github.com/target/mmk-sso/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Storage          = (*FuncStorage)(nil)
	_ ports.Navigator        = (*RecordingNavigator)(nil)
	_ ports.VisibilitySource = (*ManualVisibility)(nil)
)

// FuncStorage is an in-memory Storage whose behavior can be overridden per method.
// It counts calls so tests can assert how often the store was touched.
type FuncStorage struct {
	GetFunc    func(ctx context.Context, key string) (string, bool, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, keys ...string) error

	mu          sync.Mutex
	data        map[string]string
	SetCalls    int
	DeleteCalls int
}

// NewFuncStorage creates an empty FuncStorage.
func NewFuncStorage() *FuncStorage {
	return &FuncStorage{data: make(map[string]string)}
}

func (m *FuncStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *FuncStorage) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.SetCalls++
	m.mu.Unlock()
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure()
	m.data[key] = value
	return nil
}

func (m *FuncStorage) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	m.DeleteCalls++
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keys...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Put writes a raw entry without counting it as a Set call.
func (m *FuncStorage) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure()
	m.data[key] = value
}

// Has reports whether key is present.
func (m *FuncStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// Len returns the number of stored entries.
func (m *FuncStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *FuncStorage) ensure() {
	if m.data == nil {
		m.data = make(map[string]string)
	}
}

// RecordingNavigator records every replace and redirect a page performs.
type RecordingNavigator struct {
	mu        sync.Mutex
	URL       string
	Replaces  []string
	Redirects []string
	// OnRedirect, when set, runs after a redirect is recorded.
	OnRedirect func(u string)
}

// NewRecordingNavigator returns a navigator positioned at currentURL.
func NewRecordingNavigator(currentURL string) *RecordingNavigator {
	return &RecordingNavigator{URL: currentURL}
}

func (n *RecordingNavigator) CurrentURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.URL
}

func (n *RecordingNavigator) ReplaceURL(u string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.URL = u
	n.Replaces = append(n.Replaces, u)
}

func (n *RecordingNavigator) Redirect(u string) {
	n.mu.Lock()
	n.Redirects = append(n.Redirects, u)
	hook := n.OnRedirect
	n.mu.Unlock()
	if hook != nil {
		hook(u)
	}
}

// RedirectCount returns how many redirects were issued.
func (n *RecordingNavigator) RedirectCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Redirects)
}

// LastRedirect returns the most recent redirect target, or "".
func (n *RecordingNavigator) LastRedirect() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Redirects) == 0 {
		return ""
	}
	return n.Redirects[len(n.Redirects)-1]
}

// ManualVisibility is a VisibilitySource driven by the test.
type ManualVisibility struct {
	mu       sync.Mutex
	handlers map[int]func(context.Context)
	nextID   int
}

// NewManualVisibility creates a source with no subscribers.
func NewManualVisibility() *ManualVisibility {
	return &ManualVisibility{handlers: make(map[int]func(context.Context))}
}

func (m *ManualVisibility) OnVisible(fn func(ctx context.Context)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// Focus fires a "page visible again" event.
func (m *ManualVisibility) Focus(ctx context.Context) {
	m.mu.Lock()
	fns := make([]func(context.Context), 0, len(m.handlers))
	for _, fn := range m.handlers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// Subscribers returns the number of attached handlers.
func (m *ManualVisibility) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}
