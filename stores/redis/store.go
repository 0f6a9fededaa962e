// Package redis provides a CredentialStore backed by a Redis hash.
//
// All credentials of one installation live in a single hash
// ("<prefix><namespace>"). Set and Remove are buffered in memory and Save
// applies them in one MULTI/EXEC transaction, so other readers of the hash
// never see half of a token pair.
package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/panyam/authsession"
)

const (
	DefaultPrefix    = "authsession:"
	DefaultTimeout   = 5 * time.Second
	defaultNamespace = "default"
)

// CredentialStore stores credentials in a Redis hash
type CredentialStore struct {
	mu      sync.Mutex
	client  redis.Cmdable
	prefix  string
	key     string
	timeout time.Duration

	// pending changes since the last Save; a nil value means removal
	pending map[string]*string
}

// Option configures a CredentialStore
type Option func(*CredentialStore)

// WithPrefix sets the key prefix (defaults to "authsession:")
func WithPrefix(prefix string) Option {
	return func(s *CredentialStore) {
		s.prefix = prefix
	}
}

// WithTimeout bounds every Redis round trip (defaults to 5s)
func WithTimeout(d time.Duration) Option {
	return func(s *CredentialStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewCredentialStore creates a store that keeps credentials for namespace
// (typically an installation or device id) in client.
func NewCredentialStore(client redis.Cmdable, namespace string, opts ...Option) *CredentialStore {
	if namespace == "" {
		namespace = defaultNamespace
	}
	s := &CredentialStore{
		client:  client,
		prefix:  DefaultPrefix,
		timeout: DefaultTimeout,
		pending: make(map[string]*string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.key = s.prefix + namespace
	return s
}

// Key returns the Redis key of the credentials hash
func (s *CredentialStore) Key() string {
	return s.key
}

func (s *CredentialStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *CredentialStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	ctx, cancel := s.context()
	defer cancel()

	val, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, authsession.NewStoreError("get", key, err)
	}
	return val, true, nil
}

func (s *CredentialStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = &value
	return nil
}

func (s *CredentialStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = nil
	return nil
}

// Save applies pending changes in one transaction
func (s *CredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	ctx, cancel := s.context()
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range s.pending {
			if v == nil {
				pipe.HDel(ctx, s.key, k)
			} else {
				pipe.HSet(ctx, s.key, k, *v)
			}
		}
		return nil
	})
	if err != nil {
		return authsession.NewStoreError("save", "", err)
	}

	clear(s.pending)
	return nil
}
