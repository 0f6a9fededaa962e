// Package config loads the session manager configuration from the
// environment, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Provider kinds
const (
	ProviderCognito = "cognito"
	ProviderRemote  = "remote"
)

// Store kinds
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config selects and configures the identity provider and credential store
type Config struct {
	Provider string `env:"AUTHSESSION_PROVIDER" envDefault:"cognito" validate:"oneof=cognito remote"`

	// Cognito
	UserPoolID   string `env:"AUTHSESSION_USER_POOL_ID" validate:"required_if=Provider cognito"`
	ClientID     string `env:"AUTHSESSION_CLIENT_ID" validate:"required_if=Provider cognito"`
	ClientSecret string `env:"AUTHSESSION_CLIENT_SECRET"`
	Region       string `env:"AUTHSESSION_REGION"`
	Endpoint     string `env:"AUTHSESSION_ENDPOINT" validate:"omitempty,url"`

	// Remote (development identity provider)
	RemoteURL string `env:"AUTHSESSION_REMOTE_URL" validate:"required_if=Provider remote"`

	Store           string `env:"AUTHSESSION_STORE" envDefault:"file" validate:"oneof=file memory redis sqlite"`
	AppName         string `env:"AUTHSESSION_APP_NAME" envDefault:"authsession"`
	CredentialsFile string `env:"AUTHSESSION_CREDENTIALS_FILE"`
	RedisURL        string `env:"AUTHSESSION_REDIS_URL" validate:"required_if=Store redis"`
	RedisNamespace  string `env:"AUTHSESSION_REDIS_NAMESPACE" envDefault:"default"`
	SQLitePath      string `env:"AUTHSESSION_SQLITE_PATH" validate:"required_if=Store sqlite"`

	SignOutTimeout time.Duration `env:"AUTHSESSION_SIGNOUT_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	LogLevel  string `env:"AUTHSESSION_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"AUTHSESSION_LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Load reads .env files (the default ".env" when no paths are given, a
// missing default file is ignored), then parses and validates the
// environment.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(ErrLoadingEnvFile, err)
		}
	} else if err := godotenv.Load(paths...); err != nil {
		return nil, errors.Join(ErrLoadingEnvFile, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse builds a Config from the given variables only, ignoring the
// process environment.
func Parse(environment map[string]string) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environment})
	if err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field values and cross-field requirements
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Join(ErrInvalidConfig, err)
	}

	errs := []error{ErrInvalidConfig}
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: %s", fe.Field(), describe(fe)))
	}
	return errors.Join(errs...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_if":
		return "required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "url":
		return "must be a URL"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
