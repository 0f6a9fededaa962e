// Package app wires configuration into an identity provider, a credential
// store and a SessionManager.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panyam/authsession"
	"github.com/panyam/authsession/config"
	"github.com/panyam/authsession/providers/cognito"
	"github.com/panyam/authsession/providers/remote"
	"github.com/panyam/authsession/stores/fs"
	gormstore "github.com/panyam/authsession/stores/gorm"
	"github.com/panyam/authsession/stores/memory"
	redisstore "github.com/panyam/authsession/stores/redis"
)

var ErrUnknownKind = errors.New("app: unknown kind")

// NewProvider builds the identity provider selected by cfg.Provider
func NewProvider(ctx context.Context, cfg *config.Config) (authsession.IdentityProvider, error) {
	switch cfg.Provider {
	case config.ProviderCognito:
		return cognito.New(ctx, cognito.Config{
			UserPoolID:   cfg.UserPoolID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
		})
	case config.ProviderRemote:
		return remote.New(cfg.RemoteURL)
	default:
		return nil, fmt.Errorf("%w: provider %q", ErrUnknownKind, cfg.Provider)
	}
}

// NewStore builds the credential store selected by cfg.Store. The returned
// cleanup releases its connections and is never nil.
func NewStore(ctx context.Context, cfg *config.Config) (authsession.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreFile:
		store, err := fs.NewCredentialStore(cfg.CredentialsFile, cfg.AppName)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.StoreMemory:
		return memory.NewCredentialStore(nil), noop, nil

	case config.StoreRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			ConnectionURL:  cfg.RedisURL,
			RetryAttempts:  3,
			RetryInterval:  time.Second,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			return nil, noop, err
		}
		return redisstore.NewCredentialStore(client, cfg.RedisNamespace), client.Close, nil

	case config.StoreSQLite:
		db, err := gormstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, err
		}
		store, err := gormstore.NewCredentialStore(db, cfg.AppName)
		if err != nil {
			sqlDB.Close()
			return nil, noop, err
		}
		return store, sqlDB.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: store %q", ErrUnknownKind, cfg.Store)
	}
}

// NewSessionManager builds the provider, the store and the manager over them
func NewSessionManager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*authsession.SessionManager, func() error, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}
	store, cleanup, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	m := authsession.New(provider, store,
		authsession.WithLogger(logger),
		authsession.WithSignOutTimeout(cfg.SignOutTimeout),
	)
	return m, cleanup, nil
}
