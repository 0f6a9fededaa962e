package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authsession/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"AUTHSESSION_USER_POOL_ID": "us-east-1_AbCdEf123",
		"AUTHSESSION_CLIENT_ID":    "client",
	})
	require.NoError(t, err)

	assert.Equal(t, config.ProviderCognito, cfg.Provider)
	assert.Equal(t, config.StoreFile, cfg.Store)
	assert.Equal(t, "authsession", cfg.AppName)
	assert.Equal(t, "default", cfg.RedisNamespace)
	assert.Equal(t, 10*time.Second, cfg.SignOutTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParse_Remote(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"AUTHSESSION_PROVIDER":        "remote",
		"AUTHSESSION_REMOTE_URL":      "http://localhost:8090",
		"AUTHSESSION_STORE":           "redis",
		"AUTHSESSION_REDIS_URL":       "redis://localhost:6379/0",
		"AUTHSESSION_SIGNOUT_TIMEOUT": "3s",
		"AUTHSESSION_LOG_FORMAT":      "json",
	})
	require.NoError(t, err)
	assert.Equal(t, config.ProviderRemote, cfg.Provider)
	assert.Equal(t, "http://localhost:8090", cfg.RemoteURL)
	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.SignOutTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		mention string
	}{
		{
			name:    "cognito without pool",
			env:     map[string]string{"AUTHSESSION_CLIENT_ID": "client"},
			mention: "AUTHSESSION_USER_POOL_ID",
		},
		{
			name:    "remote without url",
			env:     map[string]string{"AUTHSESSION_PROVIDER": "remote"},
			mention: "AUTHSESSION_REMOTE_URL",
		},
		{
			name: "redis without url",
			env: map[string]string{
				"AUTHSESSION_PROVIDER":   "remote",
				"AUTHSESSION_REMOTE_URL": "http://localhost:8090",
				"AUTHSESSION_STORE":      "redis",
			},
			mention: "AUTHSESSION_REDIS_URL",
		},
		{
			name: "sqlite without path",
			env: map[string]string{
				"AUTHSESSION_PROVIDER":   "remote",
				"AUTHSESSION_REMOTE_URL": "http://localhost:8090",
				"AUTHSESSION_STORE":      "sqlite",
			},
			mention: "AUTHSESSION_SQLITE_PATH",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"AUTHSESSION_PROVIDER": "okta"},
			mention: "AUTHSESSION_PROVIDER",
		},
		{
			name: "unknown log level",
			env: map[string]string{
				"AUTHSESSION_PROVIDER":   "remote",
				"AUTHSESSION_REMOTE_URL": "http://localhost:8090",
				"AUTHSESSION_LOG_LEVEL":  "trace",
			},
			mention: "AUTHSESSION_LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(tt.env)
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.mention)
		})
	}
}

func TestParse_BadDuration(t *testing.T) {
	_, err := config.Parse(map[string]string{
		"AUTHSESSION_PROVIDER":        "remote",
		"AUTHSESSION_REMOTE_URL":      "http://localhost:8090",
		"AUTHSESSION_SIGNOUT_TIMEOUT": "soon",
	})
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"AUTHSESSION_PROVIDER=remote\n"+
			"AUTHSESSION_REMOTE_URL=http://idp.local\n"+
			"AUTHSESSION_STORE=memory\n"), 0600))

	// godotenv does not override variables that are already set
	for _, key := range []string{"AUTHSESSION_PROVIDER", "AUTHSESSION_REMOTE_URL", "AUTHSESSION_STORE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderRemote, cfg.Provider)
	assert.Equal(t, "http://idp.local", cfg.RemoteURL)
	assert.Equal(t, config.StoreMemory, cfg.Store)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
