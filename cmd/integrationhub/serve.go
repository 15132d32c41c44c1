package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mktstack/integrationhub/internal/config"
	httpapp "github.com/mktstack/integrationhub/internal/http"
	"github.com/mktstack/integrationhub/internal/logging"
	"github.com/mktstack/integrationhub/internal/metrics"
	"github.com/mktstack/integrationhub/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the integration API and the metrics listener.",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return asCommandError(runServe())
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.registry.Build(ctx); err != nil {
		// Plugins may be installed later; lookups retry the build.
		logger.Warn("initial registry build failed", "error", err)
	}

	scheduler := sync.Scheduler{
		Runner: sync.RegistryRefresh{
			Registry:   a.registry,
			Dependents: []sync.Invalidator{a.catalog, a.share},
		},
		Interval:    cfg.RegistryRefreshInterval,
		Logger:      logging.WithComponent(logger, "registry_refresh"),
		SkipInitial: true,
	}
	go scheduler.Run(ctx)

	_, metricsErrCh := metrics.StartServer(ctx, cfg.MetricsAddr, logging.WithComponent(logger, "metrics"))

	srv, err := httpapp.NewEchoServer(a.handlers(), logging.WithComponent(logger, "http"))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- srv.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-metricsErrCh:
		return err
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
