// Package grpc attaches the access token held by an authsession.SessionManager
// to outgoing gRPC calls, as per-RPC credentials or as client interceptors.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Default metadata key and scheme for the access token
const (
	DefaultMetadataKeyAuthorization = "authorization"
	DefaultScheme                   = "Bearer"
)

// Config holds the metadata configuration for outgoing tokens.
type Config struct {
	// MetadataKey is the gRPC metadata key carrying the token.
	// Defaults to "authorization".
	MetadataKey string

	// Scheme prefixes the token value. Defaults to "Bearer".
	Scheme string

	// RequireTransportSecurity when true refuses to send the token over
	// an insecure connection. Disable only for local development.
	RequireTransportSecurity bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKey:              DefaultMetadataKeyAuthorization,
		Scheme:                   DefaultScheme,
		RequireTransportSecurity: true,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKey == "" {
		c.MetadataKey = DefaultMetadataKeyAuthorization
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
}

func (c *Config) value(token string) string {
	return c.Scheme + " " + token
}

// TokenToOutgoingContext adds token to outgoing gRPC context metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithConfig(ctx, token, nil)
}

// TokenToOutgoingContextWithConfig adds token using the specified config.
func TokenToOutgoingContextWithConfig(ctx context.Context, token string, config *Config) context.Context {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()
	return metadata.AppendToOutgoingContext(ctx, config.MetadataKey, config.value(token))
}

// TokenFromIncomingContext extracts the token from incoming gRPC metadata.
// Services use it to read what the client interceptors attached.
func TokenFromIncomingContext(ctx context.Context) (string, bool) {
	return TokenFromIncomingContextWithConfig(ctx, nil)
}

// TokenFromIncomingContextWithConfig extracts the token using the specified config.
func TokenFromIncomingContextWithConfig(ctx context.Context, config *Config) (string, bool) {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(config.MetadataKey)
	if len(values) == 0 {
		return "", false
	}
	token, found := strings.CutPrefix(values[0], config.Scheme+" ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
