package idp_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authsession"
	"github.com/panyam/authsession/idp"
)

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) idp.ErrorResponse {
	t.Helper()
	var e idp.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestServer_Flow(t *testing.T) {
	p, sender, _ := newTestProvider(t)
	srv := httptest.NewServer(idp.NewServer(p))
	defer srv.Close()

	resp := postJSON(t, srv, "/signup", idp.SignUpBody{Username: "a@x.com", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var signUp authsession.SignUpResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&signUp))
	assert.NotEmpty(t, signUp.UserSub)

	resp = postJSON(t, srv, "/confirm", idp.ConfirmBody{Username: "a@x.com", Code: sender.code("a@x.com")})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv, "/token", idp.TokenRequest{GrantType: "password", Username: "a@x.com", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var tokens idp.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.IDToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	infoResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer infoResp.Body.Close()
	require.Equal(t, http.StatusOK, infoResp.StatusCode)
	var info map[string]string
	require.NoError(t, json.NewDecoder(infoResp.Body).Decode(&info))
	assert.Equal(t, "a@x.com", info["email"])

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/signout", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	outResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	outResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, outResp.StatusCode)

	_, err = p.VerifyAccessToken(tokens.AccessToken)
	assert.Error(t, err)
}

func TestServer_Errors(t *testing.T) {
	p, sender, _ := newTestProvider(t)
	registerConfirmed(t, p, sender, "a@x.com", "password123")
	srv := httptest.NewServer(idp.NewServer(p))
	defer srv.Close()

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		reason string
	}{
		{"duplicate signup", "/signup", idp.SignUpBody{Username: "a@x.com", Password: "password123"}, http.StatusConflict, idp.ReasonUsernameExists},
		{"weak password", "/signup", idp.SignUpBody{Username: "b@x.com", Password: "short"}, http.StatusBadRequest, idp.ReasonInvalidPassword},
		{"confirm unknown", "/confirm", idp.ConfirmBody{Username: "ghost@x.com", Code: "123456"}, http.StatusNotFound, idp.ReasonUserNotFound},
		{"bad password", "/token", idp.TokenRequest{Username: "a@x.com", Password: "nope-nope"}, http.StatusUnauthorized, idp.ReasonNotAuthorized},
		{"bad grant", "/token", idp.TokenRequest{GrantType: "client_credentials"}, http.StatusBadRequest, "unsupported_grant_type"},
		{"bad body", "/token", "not an object", http.StatusBadRequest, idp.ReasonInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.reason, decodeError(t, resp).Error)
		})
	}
}

func TestServer_SignOutWithoutToken(t *testing.T) {
	p, _, _ := newTestProvider(t)
	srv := httptest.NewServer(idp.NewServer(p))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/signout", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, idp.ReasonNotAuthorized, decodeError(t, resp).Error)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	p, _, _ := newTestProvider(t)
	srv := httptest.NewServer(idp.NewServer(p))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/token")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
