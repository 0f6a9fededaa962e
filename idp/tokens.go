package idp

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/panyam/authsession"
)

// Token uses
const (
	TokenUseAccess = "access"
	TokenUseID     = "id"
)

// Claims are carried by both access and id tokens
type Claims struct {
	jwt.RegisteredClaims
	TokenUse string `json:"token_use"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// issueTokens creates a new session for u. Caller must hold p.mu.
func (p *Provider) issueTokens(u *user) (*authsession.AuthResult, error) {
	now := p.cfg.Now()
	expiresAt := now.Add(p.cfg.AccessTokenExpiry)
	jti := uuid.NewString()

	access := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.sub,
			Issuer:    p.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenUse: TokenUseAccess,
		Username: u.username,
		ClientID: p.cfg.ClientID,
	}
	id := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.sub,
			Issuer:    p.cfg.Issuer,
			Audience:  jwt.ClaimStrings{p.cfg.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenUse: TokenUseID,
		Username: u.username,
		Email:    u.attributes["email"],
	}

	accessToken, err := p.sign(access)
	if err != nil {
		return nil, err
	}
	idToken, err := p.sign(id)
	if err != nil {
		return nil, err
	}
	refreshToken, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	u.sessions[jti] = struct{}{}
	return &authsession.AuthResult{
		AccessToken:  accessToken,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.cfg.AccessTokenExpiry,
	}, nil
}

func (p *Provider) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (p *Provider) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.cfg.SigningKey, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(p.cfg.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(p.cfg.Now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyAccessToken checks signature, expiry, client and revocation of an
// access token. Failures are NotAuthorizedException provider errors.
func (p *Provider) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := p.parse(tokenString)
	if err != nil {
		msg := "Invalid Access Token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Access Token has expired"
		}
		return nil, &authsession.ProviderError{Provider: Name, Reason: ReasonNotAuthorized, Message: msg, Err: err}
	}
	if claims.TokenUse != TokenUseAccess || claims.ClientID != p.cfg.ClientID {
		return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "Invalid Access Token")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userKey(claims.Username)]
	if !ok || u.sub != claims.Subject {
		return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "Invalid Access Token")
	}
	if _, live := u.sessions[claims.ID]; !live {
		return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "Access Token has been revoked")
	}
	return claims, nil
}

// VerifyIDToken checks signature, expiry and audience of an id token
func (p *Provider) VerifyIDToken(tokenString string) (*Claims, error) {
	claims, err := p.parse(tokenString)
	if err != nil {
		return nil, &authsession.ProviderError{Provider: Name, Reason: ReasonNotAuthorized, Message: "Invalid ID Token", Err: err}
	}
	if claims.TokenUse != TokenUseID {
		return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "Invalid ID Token")
	}
	aud, _ := claims.GetAudience()
	for _, a := range aud {
		if a == p.cfg.ClientID {
			return claims, nil
		}
	}
	return nil, authsession.NewProviderError(Name, ReasonNotAuthorized, "Invalid ID Token audience")
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// tokenLifetime is exposed to the HTTP layer in whole seconds
func tokenLifetime(d time.Duration) int64 {
	return int64(d / time.Second)
}
