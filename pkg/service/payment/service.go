// Package payment orchestrates the presale money flows: charging a
// reservation at checkout, applying provider webhooks, and the nightly
// reconciliation that assigns or refunds every reservation of a due round.
//
// All state changes go through status-guarded writes, so retries and
// concurrent callers never move an entity backwards. Domain events are
// published only after the change they describe has been stored.
package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/presale/pkg/cache"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/eventbus"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/amirasaad/presale/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultConcurrency = 4

// Deps groups the collaborators of the payment service.
type Deps struct {
	Store    repository.Store
	Adapter  provider.Adapter
	EventBus eventbus.Bus
	Logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConcurrency bounds how many rounds reconciliation evaluates at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithProgressCache caches RoundProgress results for ttl. Writes that touch
// a round drop its entry.
func WithProgressCache(c cache.ProgressCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.progress = c
		s.progressTTL = ttl
	}
}

// Service implements checkout, webhook handling and reconciliation.
type Service struct {
	store       repository.Store
	adapter     provider.Adapter
	bus         eventbus.Bus
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
	progress    cache.ProgressCache
	progressTTL time.Duration

	// webhooks coalesces concurrent deliveries of the same provider event.
	webhooks singleflight.Group
}

// New creates a payment service.
func New(deps Deps, opts ...Option) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:       deps.Store,
		adapter:     deps.Adapter,
		bus:         deps.EventBus,
		logger:      logger.With("service", "payment"),
		now:         func() time.Time { return time.Now().UTC() },
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the configured payment adapter.
func (s *Service) Provider() string {
	return s.adapter.Name()
}

// emit publishes evt. Publication failures never fail the operation.
func (s *Service) emit(ctx context.Context, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		s.logger.Warn("failed to publish event", "type", evt.Type(), "error", err)
	}
}

func (s *Service) invalidateProgress(ctx context.Context, roundID uuid.UUID) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Delete(ctx, roundID); err != nil {
		s.logger.Warn("failed to drop cached progress", "round_id", roundID, "error", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
