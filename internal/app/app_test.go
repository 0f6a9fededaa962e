package app_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authsession"
	"github.com/panyam/authsession/config"
	"github.com/panyam/authsession/idp"
	"github.com/panyam/authsession/internal/app"
	"github.com/panyam/authsession/providers/cognito"
	"github.com/panyam/authsession/providers/remote"
	"github.com/panyam/authsession/stores/fs"
	gormstore "github.com/panyam/authsession/stores/gorm"
	"github.com/panyam/authsession/stores/memory"
	redisstore "github.com/panyam/authsession/stores/redis"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := app.NewProvider(ctx, &config.Config{
		Provider:   config.ProviderCognito,
		UserPoolID: "us-east-1_AbCdEf123",
		ClientID:   "client",
	})
	require.NoError(t, err)
	assert.IsType(t, &cognito.Provider{}, p)

	p, err = app.NewProvider(ctx, &config.Config{Provider: config.ProviderRemote, RemoteURL: "http://localhost:8090"})
	require.NoError(t, err)
	assert.IsType(t, &remote.Provider{}, p)

	_, err = app.NewProvider(ctx, &config.Config{Provider: "okta"})
	assert.ErrorIs(t, err, app.ErrUnknownKind)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.Config
		want any
	}{
		{"file", config.Config{Store: config.StoreFile, CredentialsFile: filepath.Join(dir, "creds.json")}, &fs.CredentialStore{}},
		{"memory", config.Config{Store: config.StoreMemory}, &memory.CredentialStore{}},
		{"redis", config.Config{Store: config.StoreRedis, RedisURL: "redis://" + mr.Addr(), RedisNamespace: "test"}, &redisstore.CredentialStore{}},
		{"sqlite", config.Config{Store: config.StoreSQLite, SQLitePath: filepath.Join(dir, "creds.db"), AppName: "test"}, &gormstore.CredentialStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup, err := app.NewStore(ctx, &tt.cfg)
			require.NoError(t, err)
			defer cleanup()
			assert.IsType(t, tt.want, store)

			require.NoError(t, store.Set(authsession.AccessTokenKey, "AT1"))
			require.NoError(t, store.Save())
			v, ok, err := store.Get(authsession.AccessTokenKey)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "AT1", v)
		})
	}

	_, cleanup, err := app.NewStore(ctx, &config.Config{Store: "etcd"})
	assert.ErrorIs(t, err, app.ErrUnknownKind)
	assert.NoError(t, cleanup())
}

func TestNewSessionManager_RemoteFlow(t *testing.T) {
	codes := make(chan string, 1)
	server, err := idp.New(idp.Config{
		SigningKey: []byte("test-key"),
		BcryptCost: 4,
		CodeSender: codeSenderFunc(func(to, code string) { codes <- code }),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(idp.NewServer(server))
	defer srv.Close()

	cfg := &config.Config{
		Provider:       config.ProviderRemote,
		RemoteURL:      srv.URL,
		Store:          config.StoreSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "creds.db"),
		AppName:        "test",
		SignOutTimeout: time.Second,
	}

	ctx := context.Background()
	m, cleanup, err := app.NewSessionManager(ctx, cfg, nil)
	require.NoError(t, err)

	_, err = m.Register(ctx, "a@x.com", "password123")
	require.NoError(t, err)
	_, err = m.ConfirmRegistration(ctx, "a@x.com", <-codes)
	require.NoError(t, err)
	_, err = m.Authenticate(ctx, "a@x.com", "password123")
	require.NoError(t, err)
	require.NoError(t, cleanup())

	// A fresh manager over the same database sees the session
	m2, cleanup2, err := app.NewSessionManager(ctx, cfg, nil)
	require.NoError(t, err)
	defer cleanup2()
	assert.True(t, m2.IsAuthenticated())

	require.NoError(t, m2.SignOut(ctx))
	m2.WaitForSignOuts()
	assert.False(t, m2.IsAuthenticated())
}

type codeSenderFunc func(to, code string)

func (f codeSenderFunc) SendConfirmationCode(ctx context.Context, to, code string) error {
	f(to, code)
	return nil
}
