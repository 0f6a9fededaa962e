package idp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"

	"github.com/panyam/authsession"
)

// SignupValidator checks a registration before a user is created.
// Returning a *authsession.ProviderError selects the reason reported.
type SignupValidator func(req authsession.SignUpRequest) error

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DefaultSignupValidator requires an email username and a password of at
// least 8 characters
var DefaultSignupValidator SignupValidator = func(req authsession.SignUpRequest) error {
	if req.Username == "" {
		return authsession.NewProviderError(Name, ReasonInvalidParameter, "username is required")
	}
	if !emailRegex.MatchString(req.Username) {
		return authsession.NewProviderError(Name, ReasonInvalidParameter, "Username should be an email.")
	}
	if email, ok := req.Attributes["email"]; ok && !emailRegex.MatchString(email) {
		return authsession.NewProviderError(Name, ReasonInvalidParameter, "Invalid email address format.")
	}
	if len(req.Password) < 8 {
		return authsession.NewProviderError(Name, ReasonInvalidPassword, "Password did not conform with policy: Password not long enough")
	}
	return nil
}

// CodeSender delivers confirmation codes to users
type CodeSender interface {
	SendConfirmationCode(ctx context.Context, to, code string) error
}

// ConsoleCodeSender is a development implementation that logs codes
type ConsoleCodeSender struct {
	Logger *slog.Logger
}

func (c *ConsoleCodeSender) SendConfirmationCode(ctx context.Context, to, code string) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "confirmation code", "to", to, "code", code)
	return nil
}

// generateCode returns a random 6 digit confirmation code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
