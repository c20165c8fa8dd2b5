package cache

import (
	"context"
	"time"

	"github.com/amirasaad/presale/pkg/progress"
	"github.com/google/uuid"
)

// ProgressCache caches computed round progress.
type ProgressCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, roundID uuid.UUID) (*progress.Summary, error)
	Set(ctx context.Context, roundID uuid.UUID, summary *progress.Summary, ttl time.Duration) error
	Delete(ctx context.Context, roundID uuid.UUID) error
}
