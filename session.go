package authsession

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSignOutTimeout bounds the background remote sign-out started by SignOut
const DefaultSignOutTimeout = 10 * time.Second

// Identity is a reference to a user registration on the identity provider
type Identity struct {
	Username string
}

// SessionManager owns the session lifecycle: it calls the identity
// provider, stores the resulting tokens and derives the session state from
// what is stored.
//
// A SessionManager is safe for concurrent use. The zero value is an
// uninitialized manager: provider-backed operations fail with
// ErrUninitializedClient and IsAuthenticated reports false.
type SessionManager struct {
	mu       sync.RWMutex
	provider IdentityProvider
	store    CredentialStore
	current  *Identity

	logger         *slog.Logger
	signOutTimeout time.Duration
	signOuts       sync.WaitGroup
}

// Option configures a SessionManager
type Option func(*SessionManager)

// WithLogger sets the logger (defaults to slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSignOutTimeout bounds how long a background remote sign-out may run
func WithSignOutTimeout(d time.Duration) Option {
	return func(m *SessionManager) {
		if d > 0 {
			m.signOutTimeout = d
		}
	}
}

// New creates a SessionManager for the given provider and store.
// The provider's configuration (pool, client id) is fixed by the provider
// itself and cannot be changed through the manager afterwards.
func New(provider IdentityProvider, store CredentialStore, opts ...Option) *SessionManager {
	m := &SessionManager{
		provider:       provider,
		store:          store,
		logger:         slog.Default(),
		signOutTimeout: DefaultSignOutTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) log() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Register creates a new user on the identity provider. No attributes and
// no validation data are sent. The provider's result or error is returned
// unchanged; local session state is not touched.
func (m *SessionManager) Register(ctx context.Context, username, password string) (*SignUpResult, error) {
	if m.provider == nil {
		return nil, ErrUninitializedClient
	}
	return m.provider.SignUp(ctx, SignUpRequest{
		Username:   username,
		Password:   password,
		Attributes: map[string]string{},
	})
}

// ConfirmRegistration submits the confirmation code for a pending
// registration. Local session state is not touched.
func (m *SessionManager) ConfirmRegistration(ctx context.Context, username, code string) (*ConfirmResult, error) {
	if m.provider == nil {
		return nil, ErrUninitializedClient
	}
	identity := &Identity{Username: username}
	return m.provider.ConfirmSignUp(ctx, ConfirmRequest{
		Username:           identity.Username,
		Code:               code,
		ForceAliasCreation: true,
	})
}

// Authenticate logs in with username/password. On success the identity
// becomes the current identity and both tokens replace whatever was stored
// before. On failure the provider error is returned unchanged and stored
// credentials are left as they were.
func (m *SessionManager) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	if m.provider == nil {
		return nil, ErrUninitializedClient
	}
	if m.store == nil {
		return nil, ErrNoStore
	}

	identity := &Identity{Username: username}
	result, err := m.provider.Authenticate(ctx, AuthRequest{
		Username: identity.Username,
		Password: password,
	})
	if err != nil {
		m.log().Debug("authentication failed", "username", username, "err", err)
		return nil, err
	}
	if result == nil {
		return nil, NewProviderError("", "EmptyResult", "provider returned no tokens for %s", username)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := writeCredentials(m.store, result.Credentials()); err != nil {
		return nil, err
	}
	m.current = identity

	m.log().Info("authenticated", "username", username)
	return result, nil
}

// RegisterAsync is the asynchronous form of Register
func (m *SessionManager) RegisterAsync(ctx context.Context, username, password string) *Future[*SignUpResult] {
	return goFuture(ctx, func(ctx context.Context) (*SignUpResult, error) {
		return m.Register(ctx, username, password)
	})
}

// ConfirmRegistrationAsync is the asynchronous form of ConfirmRegistration
func (m *SessionManager) ConfirmRegistrationAsync(ctx context.Context, username, code string) *Future[*ConfirmResult] {
	return goFuture(ctx, func(ctx context.Context) (*ConfirmResult, error) {
		return m.ConfirmRegistration(ctx, username, code)
	})
}

// AuthenticateAsync is the asynchronous form of Authenticate
func (m *SessionManager) AuthenticateAsync(ctx context.Context, username, password string) *Future[*AuthResult] {
	return goFuture(ctx, func(ctx context.Context) (*AuthResult, error) {
		return m.Authenticate(ctx, username, password)
	})
}

// SignOut ends the session. If the provider keeps remote sessions and an
// access token is stored, a remote sign-out is started in the background;
// its failure is only logged. Both tokens are removed and the current
// identity is cleared. Calling SignOut without a session is a no-op.
//
// The returned error is only ever a local store failure. In that case the
// stored tokens and the current identity are left as they were and no
// remote sign-out is started.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		m.current = nil
		return nil
	}

	token, ok, err := m.store.Get(AccessTokenKey)
	if err != nil {
		m.log().Warn("could not read access token before sign out", "err", err)
	}

	if err := clearCredentials(m.store); err != nil {
		return err
	}
	m.current = nil

	if terminator, isTerminator := m.provider.(SessionTerminator); isTerminator && ok && token != "" {
		m.startRemoteSignOut(ctx, terminator, token)
	}
	return nil
}

// startRemoteSignOut fires the provider sign-out without waiting for it
func (m *SessionManager) startRemoteSignOut(ctx context.Context, terminator SessionTerminator, token string) {
	m.signOuts.Add(1)
	go func() {
		defer m.signOuts.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.signOutTimeout)
		defer cancel()

		if err := terminator.SignOut(ctx, token); err != nil {
			m.log().Warn("remote sign out failed", "err", err)
		}
	}()
}

// WaitForSignOuts blocks until every background remote sign-out has
// finished. Short-lived programs call it before exiting.
func (m *SessionManager) WaitForSignOuts() {
	m.signOuts.Wait()
}

// IsAuthenticated reports whether an access token is currently stored.
// It reads the store on every call.
func (m *SessionManager) IsAuthenticated() bool {
	_, ok := m.GetAccessToken()
	return ok
}

// GetAccessToken returns the stored access token exactly as stored.
// ok is false if there is none.
func (m *SessionManager) GetAccessToken() (token string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.store == nil {
		return "", false
	}
	token, ok, err := m.store.Get(AccessTokenKey)
	if err != nil {
		m.log().Debug("could not read access token", "err", err)
		return "", false
	}
	return token, ok
}

// Credentials returns both stored tokens, read under one lock so a
// concurrent login can never produce a mixed pair.
func (m *SessionManager) Credentials() (*Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.store == nil {
		return nil, false
	}
	access, ok, err := m.store.Get(AccessTokenKey)
	if err != nil || !ok {
		return nil, false
	}
	id, ok, err := m.store.Get(IDTokenKey)
	if err != nil || !ok {
		return nil, false
	}
	return &Credentials{AccessToken: access, IDToken: id}, true
}

// CurrentIdentity returns the identity of the last successful
// Authenticate in this process. It is not restored after a restart, so
// it can be absent while IsAuthenticated is true.
func (m *SessionManager) CurrentIdentity() (*Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, false
	}
	identity := *m.current
	return &identity, true
}
