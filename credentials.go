package authsession

import (
	"errors"
	"fmt"
)

// Keys under which session tokens are kept in a CredentialStore
const (
	AccessTokenKey = "accessToken"
	IDTokenKey     = "idToken"
)

// Credentials is the token pair issued by a successful authentication.
// Both tokens are stored together or not at all.
type Credentials struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// CredentialStore is a durable, synchronous key/value store that survives
// process restarts on the same machine.
type CredentialStore interface {
	// Get returns the value for key. ok is false if the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Save persists pending changes (for stores that batch writes).
	// All Set/Remove calls since the last Save become durable together.
	Save() error
}

// StoreError describes a failed credential store operation
type StoreError struct {
	Operation string // "get", "set", "remove", "save", "load"
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " credential"
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError wraps cause as a StoreError. Returns nil if cause is nil.
func NewStoreError(op, key string, cause error) error {
	if cause == nil {
		return nil
	}
	return &StoreError{Operation: op, Key: key, Cause: cause}
}

// storedValue is what a key held before a pair update
type storedValue struct {
	value string
	ok    bool
}

// readPair reads both token keys. A read error means no rollback is
// possible; the update still runs.
func readPair(store CredentialStore) map[string]storedValue {
	prev := make(map[string]storedValue, 2)
	for _, key := range []string{AccessTokenKey, IDTokenKey} {
		value, ok, err := store.Get(key)
		if err != nil {
			return nil
		}
		prev[key] = storedValue{value: value, ok: ok}
	}
	return prev
}

// restorePair puts back the values captured by readPair
func restorePair(store CredentialStore, prev map[string]storedValue) error {
	var errs []error
	for key, old := range prev {
		if old.ok {
			errs = append(errs, store.Set(key, old.value))
		} else {
			errs = append(errs, store.Remove(key))
		}
	}
	return errors.Join(errs...)
}

// updatePair runs update against both token keys. If update fails the keys
// are restored, so readers never see a half-applied or unsaved pair.
func updatePair(store CredentialStore, update func() error) error {
	prev := readPair(store)
	err := update()
	if err == nil || prev == nil {
		return err
	}
	if restoreErr := restorePair(store, prev); restoreErr != nil {
		return errors.Join(err, fmt.Errorf("failed to restore credentials: %w", restoreErr))
	}
	return err
}

// writeCredentials sets both token keys and saves them in one step.
// Caller must hold the manager's write lock.
func writeCredentials(store CredentialStore, creds Credentials) error {
	return updatePair(store, func() error {
		if err := store.Set(AccessTokenKey, creds.AccessToken); err != nil {
			return err
		}
		if err := store.Set(IDTokenKey, creds.IDToken); err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		return nil
	})
}

// clearCredentials removes both token keys and saves.
// Caller must hold the manager's write lock.
func clearCredentials(store CredentialStore) error {
	return updatePair(store, func() error {
		if err := store.Remove(AccessTokenKey); err != nil {
			return err
		}
		if err := store.Remove(IDTokenKey); err != nil {
			return err
		}
		return store.Save()
	})
}
