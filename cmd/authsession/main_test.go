package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authsession/idp"
)

type codeSink chan string

func (c codeSink) SendConfirmationCode(ctx context.Context, to, code string) error {
	c <- code
	return nil
}

// The process-wide manager is created once, so the whole flow runs in one test.
func TestRun_Flow(t *testing.T) {
	codes := make(codeSink, 1)
	server, err := idp.New(idp.Config{SigningKey: []byte("test-key"), BcryptCost: 4, CodeSender: codes})
	require.NoError(t, err)
	srv := httptest.NewServer(idp.NewServer(server))
	defer srv.Close()

	t.Setenv("AUTHSESSION_PROVIDER", "remote")
	t.Setenv("AUTHSESSION_REMOTE_URL", srv.URL)
	t.Setenv("AUTHSESSION_STORE", "file")
	t.Setenv("AUTHSESSION_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials.json"))
	t.Setenv("AUTHSESSION_LOG_LEVEL", "error")

	ctx := context.Background()
	exec := func(stdin string, args ...string) (int, string, string) {
		var stdout, stderr bytes.Buffer
		code := run(ctx, args, strings.NewReader(stdin), &stdout, &stderr)
		return code, stdout.String(), stderr.String()
	}

	code, out, _ := exec("", "status")
	assert.Equal(t, 0, code)
	assert.Equal(t, "not authenticated\n", out)

	code, _, errOut := exec("", "token")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not authenticated")

	code, out, errOut = exec("password123\n", "register", "a@x.com")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "registered a@x.com")
	assert.Contains(t, out, "a***@x***")

	code, _, errOut = exec("", "login", "a@x.com", "password123")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, idp.ReasonUserNotConfirmed)

	code, out, errOut = exec("", "confirm", "a@x.com", <-codes)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "confirmed a@x.com\n", out)

	code, out, errOut = exec("password123\n", "login", "a@x.com")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "logged in as a@x.com\n", out)

	code, out, _ = exec("", "status")
	assert.Equal(t, 0, code)
	assert.Equal(t, "authenticated\n", out)

	code, out, _ = exec("", "token")
	assert.Equal(t, 0, code)
	token := strings.TrimSpace(out)
	_, err = server.VerifyAccessToken(token)
	require.NoError(t, err)

	code, out, _ = exec("", "logout")
	assert.Equal(t, 0, code)
	assert.Equal(t, "logged out\n", out)
	_, err = server.VerifyAccessToken(token)
	assert.Error(t, err, "logout ends the server-side session")

	code, out, _ = exec("", "status")
	assert.Equal(t, 0, code)
	assert.Equal(t, "not authenticated\n", out)

	code, _, _ = exec("", "confirm", "a@x.com")
	assert.Equal(t, 2, code)

	code, _, errOut = exec("", "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestRun_NoCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &bytes.Buffer{}, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "usage")
}

func TestPasswordArg(t *testing.T) {
	pw, err := passwordArg([]string{"u", "given"}, strings.NewReader("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "given", pw)

	pw, err = passwordArg([]string{"u"}, strings.NewReader("from-stdin\r\nmore"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", pw)

	_, err = passwordArg([]string{"u"}, strings.NewReader(""))
	assert.Error(t, err)
}
