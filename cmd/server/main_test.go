package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/presale/infra/eventbus"
	"github.com/amirasaad/presale/infra/provider/simulated"
	"github.com/amirasaad/presale/internal/fixtures"
	"github.com/amirasaad/presale/pkg/app"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/stretchr/testify/require"
)

func testApp(reconciliation *config.Reconciliation) *app.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.New(&app.Deps{
		Store:    fixtures.NewStore(),
		Adapter:  simulated.New(simulated.Config{}, logger),
		EventBus: eventbus.NewWithMemory(logger),
		Logger:   logger,
	}, &config.App{
		Env:            "test",
		Server:         &config.Server{Scheme: "http", Host: "127.0.0.1", Port: 0},
		RateLimit:      &config.RateLimit{MaxRequests: 10, Window: time.Second},
		Reconciliation: reconciliation,
	})
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, testApp(&config.Reconciliation{Enabled: true, Schedule: "0 2 * * *", Concurrency: 1}))
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_InvalidSchedule(t *testing.T) {
	err := serve(context.Background(), testApp(&config.Reconciliation{Enabled: true, Schedule: "nightly"}))
	require.ErrorContains(t, err, "invalid reconciliation schedule")
}
