package browser

// Package browser provides Navigator and VisibilitySource adapters for the
// server-side twin of a browser page. The HTTP layer translates what they
// record into redirects and JSON instructions for the real browser.

import "sync"

// Navigator records what a page asked its address bar to do.
type Navigator struct {
	mu       sync.Mutex
	current  string
	replaced bool
	redirect string
}

// NewNavigator returns a Navigator positioned at currentURL.
func NewNavigator(currentURL string) *Navigator {
	return &Navigator{current: currentURL}
}

func (n *Navigator) CurrentURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Navigator) ReplaceURL(u string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = u
	n.replaced = true
}

func (n *Navigator) Redirect(u string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirect = u
}

// Replaced returns the rewritten address if ReplaceURL was called.
func (n *Navigator) Replaced() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.replaced
}

// TakeRedirect returns the pending redirect, if any, and clears it.
func (n *Navigator) TakeRedirect() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	u := n.redirect
	n.redirect = ""
	return u, u != ""
}
