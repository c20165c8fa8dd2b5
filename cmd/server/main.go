package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirasaad/presale/infra/initializer"
	"github.com/amirasaad/presale/infra/scheduler"
	"github.com/amirasaad/presale/pkg/app"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/webapi"
	log "github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, closeDeps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() {
		if err := closeDeps(); err != nil {
			deps.Logger.Warn("failed to close dependencies", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, app.New(deps, cfg))
}

// serve runs the HTTP server and, when enabled, the reconciliation
// scheduler until ctx is cancelled.
func serve(ctx context.Context, a *app.App) error {
	cfg := a.Config
	logger := a.Deps.Logger
	fiberApp := webapi.SetupApp(a)
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Reconciliation != nil && cfg.Reconciliation.Enabled {
		sched, err := scheduler.New(cfg.Reconciliation.Schedule, a.PaymentService, 0, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(ctx) })
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	g.Go(func() error {
		logger.Info("Starting server",
			"env", cfg.Env,
			"address", addr,
			"scheme", cfg.Server.Scheme,
			"payment_provider", a.PaymentService.Provider(),
		)
		return fiberApp.Listen(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")
		return fiberApp.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
		return err
	}
	return nil
}
