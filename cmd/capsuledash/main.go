// Command capsuledash runs the EVE SSO dashboard backend: the login flow,
// cookie sessions and the character data API.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mnehpets/capsuledash/config"
	"github.com/mnehpets/capsuledash/securecookie"
	"github.com/mnehpets/capsuledash/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Optional .env for local development; the environment wins.
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") != "" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	if len(cfg.SessionKeys) == 0 {
		// Ephemeral key: sessions die with the process. Fine for
		// development, wrong for production.
		log.Warn().Msg("SESSION_KEYS not set; generating an ephemeral session key")
		key := make([]byte, securecookie.KeySize)
		if _, err := rand.Read(key); err != nil {
			return err
		}
		cfg.SessionKeyID = "ephemeral"
		cfg.SessionKeys = map[string][]byte{"ephemeral": key}
	}
	if cfg.ClientID == "" {
		log.Warn().Msg("EVE_CLIENT_ID not set; login will fail with config_error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("base_url", cfg.BaseURL).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
