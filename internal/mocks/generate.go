// Package mocks provides gomock implementations of the SSO ports.
//
// Mocks are generated with go.uber.org/mock. To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	storage := mocks.NewMockStorage(ctrl)
//	storage.EXPECT().Delete(gomock.Any(), "sso_token", "sso_user").Return(nil)
//
// Prefer the hand-written doubles in internal/mocks/auth when a test only
// needs a working storage area; reach for these when call order or exact
// arguments matter.
package mocks

// Generate mock for Storage interface from internal/ports package.
// This creates MockStorage with methods for all Storage interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=storage_mock.go github.com/target/mmk-sso/internal/ports Storage
