package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authsession"
	"github.com/panyam/authsession/stores/redis"
)

func setup(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCredentialStore_Key(t *testing.T) {
	_, client := setup(t)

	assert.Equal(t, "authsession:laptop", redis.NewCredentialStore(client, "laptop").Key())
	assert.Equal(t, "authsession:default", redis.NewCredentialStore(client, "").Key())
	assert.Equal(t, "app:laptop", redis.NewCredentialStore(client, "laptop", redis.WithPrefix("app:")).Key())
}

func TestCredentialStore_SetIsBufferedUntilSave(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewCredentialStore(client, "laptop")

	require.NoError(t, store.Set(authsession.AccessTokenKey, "AT1"))
	require.NoError(t, store.Set(authsession.IDTokenKey, "IT1"))

	// Visible through the store, not yet in Redis
	v, ok, err := store.Get(authsession.AccessTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "AT1", v)
	assert.False(t, mr.Exists(store.Key()))

	require.NoError(t, store.Save())
	assert.Equal(t, "AT1", mr.HGet(store.Key(), authsession.AccessTokenKey))
	assert.Equal(t, "IT1", mr.HGet(store.Key(), authsession.IDTokenKey))
}

func TestCredentialStore_RemoveAndSave(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewCredentialStore(client, "laptop")

	mr.HSet(store.Key(), authsession.AccessTokenKey, "AT1")
	mr.HSet(store.Key(), authsession.IDTokenKey, "IT1")

	v, ok, err := store.Get(authsession.IDTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "IT1", v)

	require.NoError(t, store.Remove(authsession.AccessTokenKey))
	require.NoError(t, store.Remove(authsession.IDTokenKey))

	_, ok, _ = store.Get(authsession.AccessTokenKey)
	assert.False(t, ok)

	require.NoError(t, store.Save())
	assert.False(t, mr.Exists(store.Key()))
}

func TestCredentialStore_SharedAcrossInstances(t *testing.T) {
	_, client := setup(t)

	first := redis.NewCredentialStore(client, "laptop")
	require.NoError(t, first.Set(authsession.AccessTokenKey, "AT1"))
	require.NoError(t, first.Save())

	second := redis.NewCredentialStore(client, "laptop")
	v, ok, err := second.Get(authsession.AccessTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "AT1", v)

	other := redis.NewCredentialStore(client, "desktop")
	_, ok, err = other.Get(authsession.AccessTokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialStore_ErrorsAreStoreErrors(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewCredentialStore(client, "laptop")
	mr.Close()

	_, _, err := store.Get(authsession.AccessTokenKey)
	require.Error(t, err)

	var storeErr *authsession.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "get", storeErr.Operation)
}

func TestCredentialStore_SessionManager(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewCredentialStore(client, "laptop")
	m := authsession.New(nil, store)

	assert.False(t, m.IsAuthenticated())

	mr.HSet(store.Key(), authsession.AccessTokenKey, "AT1")
	assert.True(t, m.IsAuthenticated())

	require.NoError(t, m.SignOut(context.Background()))
	assert.False(t, m.IsAuthenticated())
	assert.False(t, mr.Exists(store.Key()))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL: "redis://" + mr.Addr() + "/0",
		RetryAttempts: 1,
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "://bad"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}
