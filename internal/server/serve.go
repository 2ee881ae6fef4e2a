package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidebrook/credcache/internal/config"
)

// Run serves until the listener fails or a termination signal arrives, then
// drains in-flight requests within the configured timeout and executes the
// registered shutdown hooks.
func Run(ctx context.Context, cfg config.ServerConfig, srv *http.Server, hooks *ShutdownHooks) error {
	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server terminated unexpectedly: %w", err)
		}
		return nil

	case <-notifyCtx.Done():
		log.Info().Msg("termination signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	hooks.Execute(shutdownCtx)

	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
