// Command devidp runs the in-memory development identity provider over HTTP.
// Confirmation codes are written to the log instead of being emailed.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/panyam/authsession/idp"
	"github.com/panyam/authsession/internal/logging"
)

type serverConfig struct {
	Addr        string        `env:"DEVIDP_ADDR" envDefault:":8090"`
	SigningKey  string        `env:"DEVIDP_SIGNING_KEY,required"`
	Issuer      string        `env:"DEVIDP_ISSUER" envDefault:"authsession-idp"`
	ClientID    string        `env:"DEVIDP_CLIENT_ID" envDefault:"local"`
	TokenExpiry time.Duration `env:"DEVIDP_TOKEN_EXPIRY" envDefault:"1h"`
	LogLevel    string        `env:"DEVIDP_LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"DEVIDP_LOG_FORMAT" envDefault:"text"`
}

func main() {
	addr := flag.String("addr", "", "listen address (overrides DEVIDP_ADDR)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := env.ParseAs[serverConfig]()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := logging.FromStrings(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func newServer(cfg serverConfig, logger *slog.Logger) (*http.Server, error) {
	provider, err := idp.New(idp.Config{
		SigningKey:        []byte(cfg.SigningKey),
		Issuer:            cfg.Issuer,
		ClientID:          cfg.ClientID,
		AccessTokenExpiry: cfg.TokenExpiry,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           idp.NewServer(provider),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func serve(ctx context.Context, cfg serverConfig, logger *slog.Logger) error {
	server, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devidp started", "addr", cfg.Addr, "client_id", cfg.ClientID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("devidp stopped cleanly")
	return nil
}
