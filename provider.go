package authsession

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// IdentityProvider is the remote service that registers users and issues
// session tokens. Implementations translate their own failures into
// *ProviderError and must not touch local session state.
type IdentityProvider interface {
	// SignUp registers a new user
	SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error)

	// ConfirmSignUp confirms a pending registration with the code delivered to the user
	ConfirmSignUp(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error)

	// Authenticate verifies username/password and returns session tokens
	Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error)
}

// SessionTerminator is implemented by providers that keep a server-side
// session which can be ended with the access token.
type SessionTerminator interface {
	SignOut(ctx context.Context, accessToken string) error
}

// SignUpRequest is a registration request
type SignUpRequest struct {
	Username       string
	Password       string
	Attributes     map[string]string // user attributes, e.g. "email"
	ValidationData map[string]string // passed to pre-sign-up hooks
}

// SignUpResult is the provider's answer to a registration
type SignUpResult struct {
	UserSub       string `json:"user_sub"`
	UserConfirmed bool   `json:"user_confirmed"`

	// Where the confirmation code was sent, usually masked (e.g. "u***@e***")
	CodeDeliveryDestination string `json:"code_delivery_destination,omitempty"`
	CodeDeliveryMedium      string `json:"code_delivery_medium,omitempty"`
}

// ConfirmRequest submits a confirmation code for a pending registration
type ConfirmRequest struct {
	Username string
	Code     string

	// ForceAliasCreation moves an alias (email/phone) that is already
	// attached to another user over to this one instead of failing.
	ForceAliasCreation bool
}

// ConfirmResult is the provider's answer to a confirmation
type ConfirmResult struct {
	Status string `json:"status"` // "SUCCESS"
}

// AuthRequest carries the credentials for a login
type AuthRequest struct {
	Username string
	Password string
}

// AuthResult is the success payload of a login
type AuthResult struct {
	AccessToken  string        `json:"access_token"`
	IDToken      string        `json:"id_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type,omitempty"`
	ExpiresIn    time.Duration `json:"expires_in,omitempty"`
}

// Credentials returns the access/id token pair of the result
func (r *AuthResult) Credentials() Credentials {
	return Credentials{AccessToken: r.AccessToken, IDToken: r.IDToken}
}

// ProviderError is the single error kind reported by identity providers.
// Reason is the provider-defined code, e.g. "NotAuthorizedException".
type ProviderError struct {
	Provider string
	Reason   string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Reason
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError without an underlying cause
func NewProviderError(provider, reason, format string, args ...any) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Reason:   reason,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsReason reports whether err is a ProviderError with the given reason
func IsReason(err error, reason string) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Reason == reason
	}
	return false
}
