// Package fs provides a file system-based CredentialStore.
package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/authsession"
)

// CredentialStore stores credentials as a JSON file on the filesystem.
// Writes are buffered until Save, which replaces the file atomically.
// Changes made to the file by another process are picked up on the next
// read as long as this store has no unsaved changes.
type CredentialStore struct {
	mu       sync.Mutex
	path     string
	values   map[string]string
	modified bool
	loadedAt time.Time // mod time of the file when last read; zero if absent
}

// credentialFile is the JSON structure stored on disk
type credentialFile struct {
	Credentials map[string]string `json:"credentials"`
}

// NewCredentialStore creates a new FS-based credential store.
// If path is empty, defaults to ~/.config/<appName>/credentials.json
func NewCredentialStore(path string, appName string) (*CredentialStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "authsession"
		}
		path = filepath.Join(configDir, appName, "credentials.json")
	}

	store := &CredentialStore{
		path:   path,
		values: make(map[string]string),
	}

	if err := store.load(); err != nil {
		return nil, authsession.NewStoreError("load", "", err)
	}

	return store, nil
}

// load reads credentials from disk. A missing file is an empty store.
// Caller must hold s.mu (or be the constructor).
func (s *CredentialStore) load() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.values = make(map[string]string)
		s.loadedAt = time.Time{}
		return nil
	}
	if err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file credentialFile
	if len(data) > 0 {
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse credentials file: %w", err)
		}
	}

	s.values = file.Credentials
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.loadedAt = info.ModTime()
	return nil
}

// refreshLocked reloads the file if it changed on disk since the last read.
// Unsaved local changes always win.
func (s *CredentialStore) refreshLocked() error {
	if s.modified {
		return nil
	}
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !s.loadedAt.IsZero() || len(s.values) > 0 {
			s.values = make(map[string]string)
			s.loadedAt = time.Time{}
		}
		return nil
	case err != nil:
		return err
	case !info.ModTime().Equal(s.loadedAt):
		return s.load()
	}
	return nil
}

// Get retrieves a credential value
func (s *CredentialStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return "", false, authsession.NewStoreError("get", key, err)
	}

	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores a credential value until the next Save
func (s *CredentialStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return authsession.NewStoreError("set", key, err)
	}

	s.values[key] = value
	s.modified = true
	return nil
}

// Remove removes a credential value until the next Save
func (s *CredentialStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return authsession.NewStoreError("remove", key, err)
	}

	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
	return nil
}

// Save persists credentials to disk
func (s *CredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return nil
	}

	// Ensure directory exists with restricted permissions
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return authsession.NewStoreError("save", "", fmt.Errorf("failed to create config directory: %w", err))
	}

	file := credentialFile{Credentials: s.values}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return authsession.NewStoreError("save", "", fmt.Errorf("failed to serialize credentials: %w", err))
	}

	if err := writeAtomicFile(s.path, data, 0600); err != nil {
		return authsession.NewStoreError("save", "", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.loadedAt = info.ModTime()
	}
	s.modified = false
	return nil
}

// Path returns the path to the credentials file
func (s *CredentialStore) Path() string {
	return s.path
}
