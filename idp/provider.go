// Package idp is a small in-memory identity provider for development and
// tests. It behaves like a Cognito user pool app client (sign up, confirm
// with a code, password login, global sign out) and reports failures with
// the same reason codes, so applications can be exercised without AWS.
package idp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/panyam/authsession"
)

// Name is used as ProviderError.Provider
const Name = "idp"

// Reasons reported by the provider
const (
	ReasonUsernameExists    = "UsernameExistsException"
	ReasonInvalidPassword   = "InvalidPasswordException"
	ReasonInvalidParameter  = "InvalidParameterException"
	ReasonUserNotFound      = "UserNotFoundException"
	ReasonCodeMismatch      = "CodeMismatchException"
	ReasonExpiredCode       = "ExpiredCodeException"
	ReasonNotAuthorized     = "NotAuthorizedException"
	ReasonUserNotConfirmed  = "UserNotConfirmedException"
	ReasonInternalError     = "InternalErrorException"
	ReasonCodeDeliveryError = "CodeDeliveryFailureException"
)

// Default expiry durations
const (
	DefaultAccessTokenExpiry = 1 * time.Hour
	DefaultCodeExpiry        = 24 * time.Hour
)

var ErrMissingSigningKey = errors.New("idp: signing key is required")

// Config configures a Provider
type Config struct {
	SigningKey []byte // HS256 key for access and id tokens
	Issuer     string // "iss" claim, defaults to "authsession-idp"
	ClientID   string // app client id, defaults to "local"

	AccessTokenExpiry time.Duration // Defaults to 1 hour
	CodeExpiry        time.Duration // Defaults to 24 hours
	BcryptCost        int           // Defaults to bcrypt.DefaultCost

	Validator  SignupValidator // Defaults to DefaultSignupValidator
	CodeSender CodeSender      // Defaults to ConsoleCodeSender
	Logger     *slog.Logger

	// Now returns the current time (defaults to time.Now)
	Now func() time.Time
}

type user struct {
	sub          string
	username     string
	attributes   map[string]string
	passwordHash []byte
	confirmed    bool
	createdAt    time.Time

	code          string
	codeExpiresAt time.Time

	// jti of every access token still valid for this user
	sessions map[string]struct{}
}

// Provider is an in-memory user pool. It is safe for concurrent use.
type Provider struct {
	mu    sync.Mutex
	cfg   Config
	users map[string]*user // keyed by lower-cased username
}

// New creates a Provider
func New(cfg Config) (*Provider, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "authsession-idp"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "local"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = DefaultAccessTokenExpiry
	}
	if cfg.CodeExpiry == 0 {
		cfg.CodeExpiry = DefaultCodeExpiry
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Validator == nil {
		cfg.Validator = DefaultSignupValidator
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CodeSender == nil {
		cfg.CodeSender = &ConsoleCodeSender{Logger: cfg.Logger}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Provider{cfg: cfg, users: make(map[string]*user)}, nil
}

// ClientID returns the app client id placed in issued tokens
func (p *Provider) ClientID() string { return p.cfg.ClientID }

func userKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SignUp registers an unconfirmed user and sends a confirmation code
func (p *Provider) SignUp(ctx context.Context, req authsession.SignUpRequest) (*authsession.SignUpResult, error) {
	if err := p.cfg.Validator(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cfg.BcryptCost)
	if err != nil {
		return nil, authsession.NewProviderError(Name, ReasonInvalidPassword, "%v", err)
	}
	code, err := generateCode()
	if err != nil {
		return nil, &authsession.ProviderError{Provider: Name, Reason: ReasonInternalError, Message: err.Error(), Err: err}
	}

	p.mu.Lock()
	key := userKey(req.Username)
	if _, exists := p.users[key]; exists {
		p.mu.Unlock()
		return nil, authsession.NewProviderError(Name, ReasonUsernameExists, "User already exists")
	}

	now := p.cfg.Now()
	attributes := make(map[string]string, len(req.Attributes)+1)
	for k, v := range req.Attributes {
		attributes[k] = v
	}
	if _, ok := attributes["email"]; !ok && strings.Contains(req.Username, "@") {
		attributes["email"] = req.Username
	}

	u := &user{
		sub:           uuid.NewString(),
		username:      req.Username,
		attributes:    attributes,
		passwordHash:  hash,
		createdAt:     now,
		code:          code,
		codeExpiresAt: now.Add(p.cfg.CodeExpiry),
		sessions:      make(map[string]struct{}),
	}
	p.users[key] = u
	p.mu.Unlock()

	destination := attributes["email"]
	if err := p.cfg.CodeSender.SendConfirmationCode(ctx, destination, code); err != nil {
		return nil, &authsession.ProviderError{
			Provider: Name,
			Reason:   ReasonCodeDeliveryError,
			Message:  "Unable to deliver confirmation code",
			Err:      err,
		}
	}

	p.cfg.Logger.Debug("user signed up", "username", req.Username, "sub", u.sub)
	return &authsession.SignUpResult{
		UserSub:                 u.sub,
		UserConfirmed:           false,
		CodeDeliveryDestination: MaskDestination(destination),
		CodeDeliveryMedium:      "EMAIL",
	}, nil
}

// ConfirmSignUp confirms a pending registration. Usernames are the only
// alias here, so ForceAliasCreation has nothing to move.
func (p *Provider) ConfirmSignUp(ctx context.Context, req authsession.ConfirmRequest) (*authsession.ConfirmResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userKey(req.Username)]
	if !ok {
		return nil, authsession.NewProviderError(Name, ReasonUserNotFound, "Username/client id combination not found.")
	}
	if u.confirmed {
		return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "User cannot be confirmed. Current status is CONFIRMED")
	}
	if p.cfg.Now().After(u.codeExpiresAt) {
		return nil, authsession.NewProviderError(Name, ReasonExpiredCode, "Invalid code provided, please request a code again.")
	}
	if req.Code != u.code {
		return nil, authsession.NewProviderError(Name, ReasonCodeMismatch, "Invalid verification code provided, please try again.")
	}

	u.confirmed = true
	u.code = ""
	return &authsession.ConfirmResult{Status: "SUCCESS"}, nil
}

// Authenticate checks the password and issues an access and id token
func (p *Provider) Authenticate(ctx context.Context, req authsession.AuthRequest) (*authsession.AuthResult, error) {
	p.mu.Lock()
	u, ok := p.users[userKey(req.Username)]
	var hash []byte
	if ok {
		hash = u.passwordHash
	}
	p.mu.Unlock()

	if !ok {
		return nil, authsession.NewProviderError(Name, ReasonUserNotFound, "User does not exist.")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "Incorrect username or password.")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !u.confirmed {
		return nil, authsession.NewProviderError(Name, ReasonUserNotConfirmed, "User is not confirmed.")
	}

	tokens, err := p.issueTokens(u)
	if err != nil {
		return nil, &authsession.ProviderError{Provider: Name, Reason: ReasonInternalError, Message: err.Error(), Err: err}
	}
	p.cfg.Logger.Debug("user authenticated", "username", u.username)
	return tokens, nil
}

// SignOut revokes every token issued to the owner of accessToken
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.VerifyAccessToken(accessToken)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[userKey(claims.Username)]; ok {
		clear(u.sessions)
	}
	return nil
}

// UserInfo returns the attributes of the user owning a valid access token
func (p *Provider) UserInfo(accessToken string) (map[string]string, error) {
	claims, err := p.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userKey(claims.Username)]
	if !ok {
		return nil, authsession.NewProviderError(Name, ReasonUserNotFound, "User does not exist.")
	}
	info := map[string]string{"sub": u.sub, "username": u.username}
	for k, v := range u.attributes {
		info[k] = v
	}
	return info, nil
}

// MaskDestination hides most of an email address ("alice@example.com" -> "a***@e***")
func MaskDestination(dest string) string {
	local, domain, found := strings.Cut(dest, "@")
	if !found || local == "" || domain == "" {
		return ""
	}
	return local[:1] + "***@" + domain[:1] + "***"
}

var (
	_ authsession.IdentityProvider  = (*Provider)(nil)
	_ authsession.SessionTerminator = (*Provider)(nil)
)
