package authsession

import "errors"

var (
	// ErrUninitializedClient is returned by provider-backed operations on a
	// SessionManager that has no IdentityProvider
	ErrUninitializedClient = errors.New("authsession: identity provider client is not initialized")

	// ErrNoStore is returned when credentials must be written but the manager has no store
	ErrNoStore = errors.New("authsession: no credential store configured")

	// ErrNotAuthenticated is returned by token consumers when no access token is stored
	ErrNotAuthenticated = errors.New("authsession: not authenticated")

	// ErrTimeout is returned by Future.AwaitWithTimeout when the call has not settled in time
	ErrTimeout = errors.New("authsession: timed out waiting for result")
)
