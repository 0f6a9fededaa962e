package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/panyam/authsession"
)

// InterceptorConfig configures the client interceptors.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// RequireAuth when true fails calls locally with codes.Unauthenticated
	// while no token is stored. When false, such calls go out without a token.
	RequireAuth bool

	// PublicMethods is a set of method names sent without a token.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires a token for all methods.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that lets calls through without a token.
func OptionalAuthConfig() *InterceptorConfig {
	config := DefaultInterceptorConfig()
	config.RequireAuth = false
	return config
}

func normalize(config *InterceptorConfig) *InterceptorConfig {
	if config == nil {
		config = DefaultInterceptorConfig()
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()
	return config
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// attaches the stored access token.
func UnaryClientInterceptor(sessions *authsession.SessionManager, config *InterceptorConfig) grpc.UnaryClientInterceptor {
	config = normalize(config)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, err := withToken(ctx, method, sessions, config)
		if err != nil {
			return err
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that
// attaches the stored access token.
func StreamClientInterceptor(sessions *authsession.SessionManager, config *InterceptorConfig) grpc.StreamClientInterceptor {
	config = normalize(config)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, err := withToken(ctx, method, sessions, config)
		if err != nil {
			return nil, err
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// withToken adds the token for method to ctx, or reports why it cannot.
func withToken(ctx context.Context, method string, sessions *authsession.SessionManager, config *InterceptorConfig) (context.Context, error) {
	if config.PublicMethods[method] {
		return ctx, nil
	}

	token, ok := sessions.GetAccessToken()
	if !ok || token == "" {
		if config.RequireAuth {
			return ctx, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}

	return TokenToOutgoingContextWithConfig(ctx, token, config.Config), nil
}
