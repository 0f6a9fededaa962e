// Package remote implements authsession.IdentityProvider against the HTTP
// API served by idp.Server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/panyam/authsession"
	"github.com/panyam/authsession/idp"
)

// Name is used as ProviderError.Provider
const Name = "remote"

// Reasons reported for failures that do not come from the server
const (
	ReasonRequestError    = "RequestError"
	ReasonInvalidResponse = "InvalidResponse"
)

// DefaultTimeout bounds each request when no HTTP client is supplied
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 1 << 20

var ErrMissingServerURL = errors.New("remote: server url is required")

// Option configures a Provider
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for requests. A nil client
// keeps the default.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithTransport sets the base HTTP transport
func WithTransport(transport http.RoundTripper) Option {
	return func(p *Provider) {
		timeout := DefaultTimeout
		if p.httpClient != nil {
			timeout = p.httpClient.Timeout
		}
		p.httpClient = &http.Client{Transport: transport, Timeout: timeout}
	}
}

// Provider talks to one idp server
type Provider struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a Provider for the server at serverURL
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, ErrMissingServerURL
	}
	p := &Provider{
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ServerURL returns the server base URL
func (p *Provider) ServerURL() string {
	return p.serverURL
}

func (p *Provider) SignUp(ctx context.Context, req authsession.SignUpRequest) (*authsession.SignUpResult, error) {
	var result authsession.SignUpResult
	err := p.post(ctx, "/signup", "", idp.SignUpBody{
		Username:       req.Username,
		Password:       req.Password,
		Attributes:     req.Attributes,
		ValidationData: req.ValidationData,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *Provider) ConfirmSignUp(ctx context.Context, req authsession.ConfirmRequest) (*authsession.ConfirmResult, error) {
	var result authsession.ConfirmResult
	err := p.post(ctx, "/confirm", "", idp.ConfirmBody{
		Username:           req.Username,
		Code:               req.Code,
		ForceAliasCreation: req.ForceAliasCreation,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *Provider) Authenticate(ctx context.Context, req authsession.AuthRequest) (*authsession.AuthResult, error) {
	var tokenResp idp.TokenResponse
	err := p.post(ctx, "/token", "", idp.TokenRequest{
		GrantType: "password",
		Username:  req.Username,
		Password:  req.Password,
	}, &tokenResp)
	if err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, authsession.NewProviderError(Name, ReasonInvalidResponse, "server returned no access token")
	}

	return &authsession.AuthResult{
		AccessToken:  tokenResp.AccessToken,
		IDToken:      tokenResp.IDToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    time.Duration(tokenResp.ExpiresIn) * time.Second,
	}, nil
}

// SignOut ends every server-side session of the token's owner
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	return p.post(ctx, "/signout", accessToken, nil, nil)
}

// post sends body as JSON and decodes a 2xx response into out.
// Error bodies become *authsession.ProviderError.
func (p *Provider) post(ctx context.Context, path, bearer string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+path, reader)
	if err != nil {
		return &authsession.ProviderError{Provider: Name, Reason: ReasonRequestError, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := p.httpClient
	if bearer != "" {
		client = &http.Client{
			Transport:     authsession.NewAuthTransport(p.httpClient.Transport, bearer),
			Timeout:       p.httpClient.Timeout,
			CheckRedirect: p.httpClient.CheckRedirect,
			Jar:           p.httpClient.Jar,
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &authsession.ProviderError{
			Provider: Name,
			Reason:   ReasonRequestError,
			Message:  "failed to connect to server",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return &authsession.ProviderError{Provider: Name, Reason: ReasonRequestError, Message: "failed to read response", Err: err}
	}
	if len(data) > maxResponseSize {
		return authsession.NewProviderError(Name, ReasonInvalidResponse, "response exceeds %d bytes", maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp idp.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == "" {
			return authsession.NewProviderError(Name, ReasonInvalidResponse, "HTTP %d", resp.StatusCode)
		}
		return authsession.NewProviderError(Name, errResp.Error, "%s", errResp.ErrorDescription)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &authsession.ProviderError{Provider: Name, Reason: ReasonInvalidResponse, Message: "invalid response from server", Err: err}
	}
	return nil
}

var (
	_ authsession.IdentityProvider  = (*Provider)(nil)
	_ authsession.SessionTerminator = (*Provider)(nil)
)
