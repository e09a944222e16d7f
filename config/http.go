package config

import (
	"net/url"
	"strings"

	apperrors "github.com/target/mmk-sso/internal/errors"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultPageCapacity = 1024
	minPageCapacity     = 16
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for the client cookie.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// PageCapacity bounds the number of live page twins kept in memory.
	PageCapacity int `env:"HTTP_PAGE_CAPACITY" envDefault:"1024"`

	// Title is shown on the landing page.
	Title string `env:"APP_TITLE" envDefault:"Satellite"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), "."))
	if h.PageCapacity == 0 {
		h.PageCapacity = defaultPageCapacity
	}
	if h.PageCapacity < minPageCapacity {
		h.PageCapacity = minPageCapacity
	}
}

// Validate rejects a cookie domain browsers would refuse, namely a public
// suffix such as "co.uk" or a bare TLD.
func (h *HTTPConfig) Validate() error {
	if h.CookieDomain == "" {
		return nil
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(h.CookieDomain); err != nil {
		return apperrors.ValidationField("APP_COOKIE_DOMAIN", "cookie domain must not be a public suffix")
	}
	return nil
}

// cookieDomainCovers reports whether a cookie scoped to domain is sent to
// requests for selfURL's host.
func cookieDomainCovers(domain, selfURL string) bool {
	if domain == "" {
		return true
	}
	u, err := url.Parse(selfURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}
