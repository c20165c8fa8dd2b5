// Command kafka_smoketest publishes a RoundFinalized event through the
// Kafka event bus and waits for it to come back on the consumer side.
//
// Usage: KAFKA_BROKERS=localhost:9092 go run ./scripts/kafka_smoketest
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/amirasaad/presale/infra/eventbus"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/google/uuid"
)

// RunSmokeTest round-trips one event through the configured brokers.
func RunSmokeTest(ctx context.Context, cfg *config.Kafka, logger *slog.Logger) error {
	// a fresh group so earlier runs do not swallow the message
	smokeCfg := *cfg
	smokeCfg.GroupID = fmt.Sprintf("%s-smoke-%d", cfg.GroupID, time.Now().Unix())

	bus, err := eventbus.NewWithKafka(&smokeCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	sent := events.RoundFinalized{
		RoundID:     uuid.New(),
		ProjectID:   uuid.New(),
		Status:      "fulfilled",
		Percent:     100,
		ReferenceAt: time.Now().UTC(),
		OccurredAt:  time.Now().UTC(),
	}
	received := make(chan events.RoundFinalized, 1)
	bus.Register(events.EventTypeRoundFinalized.String(), func(_ context.Context, e events.Event) error {
		if rf, ok := e.(events.RoundFinalized); ok && rf.RoundID == sent.RoundID {
			select {
			case received <- rf:
			default:
			}
		}
		return nil
	})

	if err := bus.Emit(ctx, sent); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	logger.Info("produced", "round_id", sent.RoundID)

	select {
	case rf := <-received:
		logger.Info("consumed", "round_id", rf.RoundID, "status", rf.Status)
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for the event to be consumed")
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Error("load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := RunSmokeTest(ctx, cfg.Kafka, logger); err != nil {
		logger.Error("kafka smoke test failed", "error", err)
		os.Exit(1)
	}
	logger.Info("kafka smoke test passed")
}
