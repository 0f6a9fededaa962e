package authsession

import (
	"net/http"

	"golang.org/x/oauth2"
)

// NewAuthTransport returns a transport that sends token as a Bearer token
// on every request made through base (http.DefaultTransport if nil). An
// empty token adds no header.
func NewAuthTransport(base http.RoundTripper, token string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if token == "" {
		return base
	}
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   base,
	}
}

// storedTokenSource reads the access token from the manager's store on
// every call. Nothing is cached and nothing is refreshed.
type storedTokenSource struct {
	m *SessionManager
}

func (s storedTokenSource) Token() (*oauth2.Token, error) {
	token, ok := s.m.GetAccessToken()
	if !ok || token == "" {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// TokenSource returns an oauth2.TokenSource backed by the stored access
// token. It fails with ErrNotAuthenticated while no token is stored.
func (m *SessionManager) TokenSource() oauth2.TokenSource {
	return storedTokenSource{m: m}
}

// HTTPClient returns an HTTP client that sends the stored access token as a
// Bearer token on every request. Timeout, cookie jar, redirect policy and
// transport are taken from base when it is non-nil.
func (m *SessionManager) HTTPClient(base *http.Client) *http.Client {
	transport := http.DefaultTransport
	c := &http.Client{}
	if base != nil {
		if base.Transport != nil {
			transport = base.Transport
		}
		c.Timeout = base.Timeout
		c.CheckRedirect = base.CheckRedirect
		c.Jar = base.Jar
	}
	c.Transport = &oauth2.Transport{
		Source: m.TokenSource(),
		Base:   transport,
	}
	return c
}
