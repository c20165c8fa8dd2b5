// Package common holds middleware shared by the event handlers.
package common

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/eventbus"
	"golang.org/x/sync/singleflight"
)

// KeyFunc derives the deduplication key of an event. An empty key disables
// deduplication for that event.
type KeyFunc func(events.Event) string

// IdempotencyTracker remembers which keys a handler already completed.
// Redis and Kafka buses deliver at least once, so a redelivered event must
// not produce a second notice.
type IdempotencyTracker struct {
	done     sync.Map
	inflight singleflight.Group
}

// NewIdempotencyTracker creates an empty tracker.
func NewIdempotencyTracker() *IdempotencyTracker {
	return &IdempotencyTracker{}
}

// Seen reports whether key completed successfully before.
func (t *IdempotencyTracker) Seen(key string) bool {
	_, ok := t.done.Load(key)
	return ok
}

// Forget drops key so the next delivery runs the handler again.
func (t *IdempotencyTracker) Forget(key string) {
	t.done.Delete(key)
}

// WithIdempotency runs handler at most once per key. Concurrent deliveries
// of the same key share one execution; a failed execution is not remembered.
func WithIdempotency(
	handler eventbus.HandlerFunc,
	tracker *IdempotencyTracker,
	keyOf KeyFunc,
	name string,
	logger *slog.Logger,
) eventbus.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, e events.Event) error {
		key := keyOf(e)
		if key == "" {
			return handler(ctx, e)
		}
		if tracker.Seen(key) {
			logger.Info("🔁 [SKIP] event already handled",
				"handler", name,
				"event_type", e.Type(),
				"idempotency_key", key,
			)
			return nil
		}
		_, err, _ := tracker.inflight.Do(key, func() (any, error) {
			if tracker.Seen(key) {
				return nil, nil
			}
			if err := handler(ctx, e); err != nil {
				return nil, err
			}
			tracker.done.Store(key, struct{}{})
			return nil, nil
		})
		return err
	}
}
