package memory

// Package memory provides an in-process Storage adapter.
// Values live as long as the process; use it for development and single-node demos.

import (
	"context"
	"sync"
)

// Backend holds the entries of every namespace.
type Backend struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{entries: make(map[string]map[string]string)}
}

// Namespace returns the Storage for one namespace (one origin or browser client).
func (b *Backend) Namespace(ns string) *Storage {
	return &Storage{backend: b, ns: ns}
}

// Storage is a namespaced view of a Backend.
type Storage struct {
	backend *Backend
	ns      string
}

// NewStorage returns a Storage over a private backend.
func NewStorage() *Storage {
	return NewBackend().Namespace("")
}

func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	v, ok := s.backend.entries[s.ns][key]
	return v, ok, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	area, ok := s.backend.entries[s.ns]
	if !ok {
		area = make(map[string]string)
		s.backend.entries[s.ns] = area
	}
	area[key] = value
	return nil
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	area := s.backend.entries[s.ns]
	for _, k := range keys {
		delete(area, k)
	}
	if len(area) == 0 {
		delete(s.backend.entries, s.ns)
	}
	return nil
}
