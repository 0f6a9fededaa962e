// Package memory provides an in-process CredentialStore. Nothing survives a
// restart, so it suits tests and short-lived tools.
package memory

import (
	"maps"
	"sync"
)

// CredentialStore keeps credentials in a map
type CredentialStore struct {
	mu     sync.RWMutex
	values map[string]string
	saves  int
}

// NewCredentialStore creates an empty store, optionally seeded with values
func NewCredentialStore(seed map[string]string) *CredentialStore {
	values := make(map[string]string, len(seed))
	maps.Copy(values, seed)
	return &CredentialStore{values: values}
}

func (s *CredentialStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *CredentialStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *CredentialStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Save is a no-op; it only counts calls
func (s *CredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return nil
}

// Clear drops every key, as if the storage was wiped from outside
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
}

// Snapshot returns a copy of the stored values
func (s *CredentialStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Saves returns how many times Save was called
func (s *CredentialStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
