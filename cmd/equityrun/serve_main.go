package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/equityrun/equityrun/internal/interfaces/http"
	"github.com/equityrun/equityrun/internal/screener"
)

// runServe starts the API server and blocks until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	screens := screener.New(a.pipe, screener.Config{Workers: a.cfg.Screener.Workers}, a.metrics)
	handlers := httpapi.NewHandlers(a.pipe, screens, a.cfg.Screener.Universe, version)

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		ReadTimeout:    a.cfg.Server.ReadTimeout(),
		WriteTimeout:   a.cfg.Server.WriteTimeout(),
		IdleTimeout:    a.cfg.Server.IdleTimeout(),
		RequestTimeout: a.cfg.Server.RequestTimeout(),
	}, handlers, a.registry)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	return nil
}
