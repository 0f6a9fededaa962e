package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"github.com/panyam/authsession"
)

// tokenCredentials implements credentials.PerRPCCredentials
type tokenCredentials struct {
	sessions *authsession.SessionManager
	config   *Config
}

// PerRPCCredentials returns credentials that read the stored access token
// before every call. Use with grpc.WithPerRPCCredentials.
// Calls fail with codes.Unauthenticated while no token is stored.
func PerRPCCredentials(sessions *authsession.SessionManager, config *Config) credentials.PerRPCCredentials {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()
	return &tokenCredentials{sessions: sessions, config: config}
}

func (c *tokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token, ok := c.sessions.GetAccessToken()
	if !ok || token == "" {
		return nil, status.Error(codes.Unauthenticated, authsession.ErrNotAuthenticated.Error())
	}
	return map[string]string{c.config.MetadataKey: c.config.value(token)}, nil
}

func (c *tokenCredentials) RequireTransportSecurity() bool {
	return c.config.RequireTransportSecurity
}
