package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/isometry/linear-agent-app/internal/config"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdService() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd.Context())
		},
	}

	bindEnvMap(cmd, svcEnvMapString)
	bindEnvMap(cmd, svcEnvMapDuration)

	return cmd
}

func runService(ctx context.Context) error {
	logger.Info("spawning...")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx, false)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to setup service")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to release resources", slog.Any("error", err))
		}
	}()

	logger.Debug("creating HTTP server...")
	mux := http.NewServeMux()
	mux.Handle("/", app.runtime)

	s := &http.Server{
		Handler:      mux,
		Addr:         net.JoinHostPort(config.Service.Addr, config.Service.Port),
		WriteTimeout: config.Service.Timeout,
		ReadTimeout:  config.Service.Timeout,
		IdleTimeout:  config.Service.Timeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serving...", "address", s.Addr, "webhookPath", config.Linear.WebhookPath, "timeout", config.Service.Timeout.String())
		serveErr <- s.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		logger.Info("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.Service.DrainTimeout)
	defer cancel()
	if shutdownErr := s.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("failed to shut down HTTP server", slog.Any("error", shutdownErr))
	}
	logger.Info("draining scheduled dispatches...", slog.Int64("inFlight", app.scheduler.InFlight()))
	if drainErr := app.scheduler.Wait(shutdownCtx); drainErr != nil {
		logger.Error("scheduled dispatches did not settle before the drain timeout", slog.Any("error", drainErr))
	}

	return pkgerrors.Wrap(err, "HTTP server failed")
}
