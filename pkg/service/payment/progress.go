package payment

import (
	"context"
	"fmt"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/progress"
	"github.com/google/uuid"
)

// RoundProgress computes the funding progress of a round with the same
// calculator reconciliation uses.
func (s *Service) RoundProgress(ctx context.Context, roundID uuid.UUID) (*progress.Summary, error) {
	if s.progress != nil {
		cached, err := s.progress.Get(ctx, roundID)
		if err != nil {
			s.logger.Warn("progress cache read failed", "round_id", roundID, "error", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	round, err := s.store.GetRoundByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	if round == nil {
		return nil, fmt.Errorf("round %s: %w", roundID, domain.ErrNotFound)
	}
	reservations, err := s.store.GetReservationsByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	summary := progress.Compute(round, reservations)
	if s.progress != nil {
		if err := s.progress.Set(ctx, roundID, &summary, s.progressTTL); err != nil {
			s.logger.Warn("progress cache write failed", "round_id", roundID, "error", err)
		}
	}
	return &summary, nil
}
