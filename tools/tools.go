//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` or run pinned via
// `go run`, and are not tracked in go.mod as runtime dependencies.
package tools

// Development tools:
//
// Air - Live reload for the satellite during local development
//   Install: go install github.com/air-verse/air@v1.63.0
//   Version: v1.63.0 (pinned 2025-01-01)
//   Docs: https://github.com/air-verse/air
//
// MockGen - Regenerates internal/mocks from the ports interfaces
//   Run: go generate ./internal/mocks
//   Version: v0.6.0 (pinned in the go:generate directive)
//   Docs: https://github.com/uber-go/mock
