// Package cognito implements authsession.IdentityProvider on an Amazon
// Cognito user pool, using only the pool's public client APIs.
package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/panyam/authsession"
)

// Name is used as ProviderError.Provider
const Name = "cognito"

// Reasons reported for failures that do not come from the Cognito API
const (
	ReasonRequestError      = "RequestError"
	ReasonChallengeRequired = "ChallengeRequired"
)

var (
	ErrInvalidConfig      = errors.New("cognito: user pool id and client id are required")
	ErrFailedToLoadConfig = errors.New("cognito: failed to load aws config")
)

// Client is the subset of the Cognito user pool API used by Provider
type Client interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Config identifies the user pool and app client
type Config struct {
	UserPoolID   string // e.g. "us-east-1_AbCdEf123"
	ClientID     string
	ClientSecret string // only for app clients created with a secret
	Region       string // defaults to the prefix of UserPoolID
	Endpoint     string // optional, e.g. a local emulator
}

// Option configures a Provider
type Option func(*options)

type options struct {
	client        Client
	httpClient    *http.Client
	configOptions []func(*config.LoadOptions) error
}

// WithClient sets a pre-configured Cognito client.
// Useful for testing with mocks.
func WithClient(client Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithHTTPClient sets the HTTP client used for Cognito requests
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithConfigOption adds a custom AWS config option
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, option)
	}
}

// Provider talks to one Cognito app client. Its pool and client id are fixed
// at construction.
type Provider struct {
	client       Client
	userPoolID   string
	clientID     string
	clientSecret string
}

// New creates a Provider for the given pool and app client
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if cfg.UserPoolID == "" || cfg.ClientID == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		region := cfg.Region
		if region == "" {
			region = RegionFromPoolID(cfg.UserPoolID)
		}
		if region == "" {
			return nil, fmt.Errorf("%w: cannot infer region from %q", ErrInvalidConfig, cfg.UserPoolID)
		}

		// SignUp, ConfirmSignUp, InitiateAuth and GlobalSignOut are
		// unauthenticated calls, so no AWS credentials are needed.
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(region),
			config.WithCredentialsProvider(aws.AnonymousCredentials{}),
		}
		if o.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(o.httpClient))
		}
		awsOptions = append(awsOptions, o.configOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = cip.NewFromConfig(awsConfig, func(co *cip.Options) {
			if cfg.Endpoint != "" {
				co.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return &Provider{
		client:       client,
		userPoolID:   cfg.UserPoolID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}, nil
}

// RegionFromPoolID returns the region part of a user pool id
// ("us-east-1_AbCdEf123" -> "us-east-1"), or "" if there is none.
func RegionFromPoolID(poolID string) string {
	region, _, found := strings.Cut(poolID, "_")
	if !found {
		return ""
	}
	return region
}

// UserPoolID returns the configured pool id
func (p *Provider) UserPoolID() string { return p.userPoolID }

// ClientID returns the configured app client id
func (p *Provider) ClientID() string { return p.clientID }

// secretHash computes SECRET_HASH for app clients that have a secret
func (p *Provider) secretHash(username string) *string {
	if p.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(p.clientSecret))
	mac.Write([]byte(username + p.clientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// SignUp registers a new user in the pool
func (p *Provider) SignUp(ctx context.Context, req authsession.SignUpRequest) (*authsession.SignUpResult, error) {
	out, err := p.client.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(p.clientID),
		Username:       aws.String(req.Username),
		Password:       aws.String(req.Password),
		SecretHash:     p.secretHash(req.Username),
		UserAttributes: toAttributes(req.Attributes),
		ValidationData: toAttributes(req.ValidationData),
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := &authsession.SignUpResult{
		UserSub:       aws.ToString(out.UserSub),
		UserConfirmed: out.UserConfirmed,
	}
	if d := out.CodeDeliveryDetails; d != nil {
		result.CodeDeliveryDestination = aws.ToString(d.Destination)
		result.CodeDeliveryMedium = string(d.DeliveryMedium)
	}
	return result, nil
}

// ConfirmSignUp confirms a registration with the delivered code
func (p *Provider) ConfirmSignUp(ctx context.Context, req authsession.ConfirmRequest) (*authsession.ConfirmResult, error) {
	_, err := p.client.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:           aws.String(p.clientID),
		Username:           aws.String(req.Username),
		ConfirmationCode:   aws.String(req.Code),
		ForceAliasCreation: req.ForceAliasCreation,
		SecretHash:         p.secretHash(req.Username),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &authsession.ConfirmResult{Status: "SUCCESS"}, nil
}

// Authenticate runs the USER_PASSWORD_AUTH flow. Pools that answer with a
// challenge (MFA, new password) are reported as ChallengeRequired.
func (p *Provider) Authenticate(ctx context.Context, req authsession.AuthRequest) (*authsession.AuthResult, error) {
	params := map[string]string{
		"USERNAME": req.Username,
		"PASSWORD": req.Password,
	}
	if hash := p.secretHash(req.Username); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	out, err := p.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapError(err)
	}

	auth := out.AuthenticationResult
	if auth == nil {
		return nil, authsession.NewProviderError(Name, ReasonChallengeRequired,
			"authentication requires challenge %q", string(out.ChallengeName))
	}

	return &authsession.AuthResult{
		AccessToken:  aws.ToString(auth.AccessToken),
		IDToken:      aws.ToString(auth.IdToken),
		RefreshToken: aws.ToString(auth.RefreshToken),
		TokenType:    aws.ToString(auth.TokenType),
		ExpiresIn:    time.Duration(auth.ExpiresIn) * time.Second,
	}, nil
}

// SignOut invalidates every token issued to the user behind accessToken
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.client.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	return mapError(err)
}

func toAttributes(m map[string]string) []types.AttributeType {
	if m == nil {
		return nil
	}
	attrs := make([]types.AttributeType, 0, len(m))
	for name, value := range m {
		attrs = append(attrs, types.AttributeType{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return attrs
}

// mapError converts SDK errors into *authsession.ProviderError
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &authsession.ProviderError{
			Provider: Name,
			Reason:   apiErr.ErrorCode(),
			Message:  apiErr.ErrorMessage(),
			Err:      err,
		}
	}

	return &authsession.ProviderError{
		Provider: Name,
		Reason:   ReasonRequestError,
		Message:  err.Error(),
		Err:      err,
	}
}

var (
	_ authsession.IdentityProvider  = (*Provider)(nil)
	_ authsession.SessionTerminator = (*Provider)(nil)
)
