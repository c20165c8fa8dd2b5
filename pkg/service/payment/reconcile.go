package payment

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/amirasaad/presale/pkg/progress"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/amirasaad/presale/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// reconcilable lists the round statuses the sweep still evaluates.
	reconcilable = []presale.RoundStatus{presale.RoundOpen, presale.RoundNearlyFull}
	// assignable lists the reservation statuses that may be assigned.
	assignable = []presale.ReservationStatus{
		presale.ReservationPending,
		presale.ReservationConfirmed,
		presale.ReservationWaitlisted,
	}
)

// ReconciliationSummary aggregates the counters of one sweep.
type ReconciliationSummary struct {
	ProcessedRounds int `json:"processedRounds"`
	Assignments     int `json:"assignments"`
	Refunds         int `json:"refunds"`
	Skipped         int `json:"skipped"`
	// Failed counts refunds the provider rejected; those reservations are
	// retried on the next run.
	Failed      int       `json:"failed"`
	ReferenceAt time.Time `json:"referenceAt"`
}

type sweepCounters struct {
	processed, assignments, refunds, skipped, failed atomic.Int64
}

// RunNightlyReconciliation decides every round whose deadline is at or
// before referenceDate and that is still open. Successful rounds get their
// reservations assigned; the others get them refunded. A zero referenceDate
// means now.
//
// Rounds are evaluated concurrently. A storage error aborts the sweep;
// provider refund errors are counted and left for the next run.
func (s *Service) RunNightlyReconciliation(
	ctx context.Context,
	referenceDate time.Time,
) (*ReconciliationSummary, error) {
	if referenceDate.IsZero() {
		referenceDate = s.now()
	}
	logger := s.logger.With("op", "reconcile", "reference_at", referenceDate)

	rounds, err := s.store.GetRounds(ctx, repository.RoundFilter{
		DueBefore: &referenceDate,
		Statuses:  reconcilable,
	})
	if err != nil {
		return nil, fmt.Errorf("load due rounds: %w", err)
	}
	logger.Info("reconciliation started", "due_rounds", len(rounds))

	var counters sweepCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, round := range rounds {
		if !round.IsDue(referenceDate) {
			continue
		}
		if !round.AcceptsReconciliation() {
			logger.Debug("round already final", "round_id", round.ID, "status", round.Status)
			continue
		}
		g.Go(func() error {
			return s.reconcileRound(gctx, round, referenceDate, &counters)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("reconciliation aborted", "error", err)
		return nil, err
	}

	summary := &ReconciliationSummary{
		ProcessedRounds: int(counters.processed.Load()),
		Assignments:     int(counters.assignments.Load()),
		Refunds:         int(counters.refunds.Load()),
		Skipped:         int(counters.skipped.Load()),
		Failed:          int(counters.failed.Load()),
		ReferenceAt:     referenceDate,
	}
	logger.Info("reconciliation finished",
		"processed", summary.ProcessedRounds,
		"assignments", summary.Assignments,
		"refunds", summary.Refunds,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *Service) reconcileRound(
	ctx context.Context,
	round *presale.Round,
	ref time.Time,
	counters *sweepCounters,
) error {
	logger := s.logger.With("op", "reconcile", "round_id", round.ID)

	reservations, err := s.store.GetReservationsByRoundID(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("load reservations of round %s: %w", round.ID, err)
	}
	if len(reservations) == 0 {
		counters.skipped.Add(1)
		logger.Debug("round has no reservations")
		return nil
	}

	ids := make([]uuid.UUID, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ID)
	}
	txs, err := s.store.GetTransactions(ctx, repository.TransactionFilter{ReservationIDs: ids})
	if err != nil {
		return fmt.Errorf("load transactions of round %s: %w", round.ID, err)
	}
	byReservation := make(map[uuid.UUID][]*presale.Transaction, len(reservations))
	for _, tx := range txs {
		byReservation[tx.ReservationID] = append(byReservation[tx.ReservationID], tx)
	}

	summary := progress.Compute(round, reservations)
	meetsGoal := summary.MeetsGoal(round)
	meetsPartial := summary.MeetsThreshold(round)
	shouldAssign := meetsGoal || (round.Rule == presale.RulePartial && meetsPartial)
	logger = logger.With("percent", summary.Percent, "meets_goal", meetsGoal, "meets_partial", meetsPartial)

	var outcome roundOutcome
	if shouldAssign {
		outcome, err = s.assignRound(ctx, logger, round, reservations, byReservation, meetsGoal, ref)
	} else {
		outcome, err = s.refundRound(ctx, logger, reservations, byReservation, ref)
	}
	if err != nil {
		return err
	}
	s.invalidateProgress(ctx, round.ID)
	counters.processed.Add(1)
	counters.assignments.Add(int64(outcome.assignments))
	counters.refunds.Add(int64(outcome.refunds))
	counters.failed.Add(int64(outcome.failed))

	if outcome.failed > 0 {
		logger.Warn("round left open after refund failures", "failed", outcome.failed)
		return nil
	}
	if _, err := s.store.UpdateRound(ctx, round.ID, repository.RoundUpdate{
		Status:       &outcome.status,
		FromStatuses: reconcilable,
	}); err != nil {
		return fmt.Errorf("update round %s: %w", round.ID, err)
	}
	logger.Info("round finalized", "status", outcome.status,
		"assignments", outcome.assignments, "refunds", outcome.refunds)

	s.emit(ctx, events.RoundFinalized{
		RoundID:     round.ID,
		ProjectID:   round.ProjectID,
		Status:      string(outcome.status),
		Percent:     summary.Percent,
		Assignments: outcome.assignments,
		Refunds:     outcome.refunds,
		ReferenceAt: ref,
		OccurredAt:  s.now(),
	})
	return nil
}

type roundOutcome struct {
	status      presale.RoundStatus
	assignments int
	refunds     int
	failed      int
}

func (s *Service) assignRound(
	ctx context.Context,
	logger *slog.Logger,
	round *presale.Round,
	reservations []*presale.Reservation,
	txs map[uuid.UUID][]*presale.Transaction,
	meetsGoal bool,
	ref time.Time,
) (roundOutcome, error) {
	outcome := roundOutcome{status: presale.RoundClosed}
	if meetsGoal {
		outcome.status = presale.RoundFulfilled
	}

	assigned := presale.ReservationAssigned
	succeeded := presale.TransactionSucceeded
	for _, r := range reservations {
		if r.Status == presale.ReservationRefunded {
			continue
		}
		var applied *presale.Reservation
		err := s.store.Do(ctx, func(st repository.Store) error {
			for _, tx := range txs[r.ID] {
				if !tx.Status.CanAdvanceTo(succeeded) {
					continue
				}
				meta := maps.Clone(tx.Metadata)
				if meta == nil {
					meta = make(map[string]string, 2)
				}
				meta["reconciled_at"] = ref.UTC().Format(time.RFC3339)
				meta["reconciliation_rule"] = string(round.Rule)
				if _, err := st.UpdateTransaction(ctx, tx.ID, repository.TransactionUpdate{
					Status:       &succeeded,
					Metadata:     meta,
					FromStatuses: openTransaction,
				}); err != nil {
					return fmt.Errorf("settle transaction %s: %w", tx.ID, err)
				}
			}
			if r.Status == presale.ReservationAssigned {
				return nil
			}
			res, err := st.UpdateReservation(ctx, r.ID, repository.ReservationUpdate{
				Status:       &assigned,
				FromStatuses: assignable,
			})
			if err != nil {
				return fmt.Errorf("assign reservation %s: %w", r.ID, err)
			}
			applied = res
			return nil
		})
		if err != nil {
			return outcome, err
		}
		if applied == nil {
			continue
		}
		outcome.assignments++
		logger.Debug("reservation assigned", "reservation_id", applied.ID)
		s.emit(ctx, events.ReservationAssigned{
			ReservationID: applied.ID,
			RoundID:       applied.RoundID,
			UserID:        applied.UserID,
			Slots:         applied.Slots,
			OccurredAt:    s.now(),
		})
	}
	return outcome, nil
}

func (s *Service) refundRound(
	ctx context.Context,
	logger *slog.Logger,
	reservations []*presale.Reservation,
	txs map[uuid.UUID][]*presale.Transaction,
	ref time.Time,
) (roundOutcome, error) {
	outcome := roundOutcome{status: presale.RoundNotMet}
	refundedStatus := presale.ReservationRefunded

	for _, r := range reservations {
		switch r.Status {
		case presale.ReservationRefunded:
			continue
		case presale.ReservationAssigned:
			logger.Warn("assigned reservation left untouched on refund path", "reservation_id", r.ID)
			continue
		}

		confirmed, failed := true, false
		for _, tx := range refundTargets(r, txs[r.ID]) {
			if tx.Metadata["refund_id"] != "" {
				confirmed = false
				continue
			}
			result, err := s.refundTransaction(ctx, logger, r, tx, ref)
			if err != nil {
				return outcome, err
			}
			switch result {
			case refundFailed:
				failed = true
			case refundPending:
				confirmed = false
			}
		}
		if failed {
			outcome.failed++
			continue
		}

		res, err := s.store.UpdateReservation(ctx, r.ID, repository.ReservationUpdate{
			Status:       &refundedStatus,
			FromStatuses: assignable,
		})
		if err != nil {
			return outcome, fmt.Errorf("refund reservation %s: %w", r.ID, err)
		}
		if res == nil {
			continue
		}
		outcome.refunds++
		s.emit(ctx, events.ReservationRefunded{
			ReservationID:   res.ID,
			RoundID:         res.RoundID,
			UserID:          res.UserID,
			RefundConfirmed: confirmed,
			OccurredAt:      s.now(),
		})
	}
	return outcome, nil
}

type refundResult int

const (
	refundConfirmed refundResult = iota
	refundPending
	refundFailed
)

// refundTransaction returns the money of tx to the buyer. Transactions the
// provider never saw are closed locally. Only storage errors are returned;
// provider errors are logged and reported as refundFailed.
func (s *Service) refundTransaction(
	ctx context.Context,
	logger *slog.Logger,
	r *presale.Reservation,
	tx *presale.Transaction,
	ref time.Time,
) (refundResult, error) {
	refunded := presale.TransactionRefunded
	meta := maps.Clone(tx.Metadata)
	if meta == nil {
		meta = make(map[string]string, 3)
	}
	meta["reconciled_at"] = ref.UTC().Format(time.RFC3339)

	if !tx.HasExternalID() {
		meta["refund"] = "local"
		if _, err := s.store.UpdateTransaction(ctx, tx.ID, repository.TransactionUpdate{
			Status:       &refunded,
			Metadata:     meta,
			FromStatuses: unrefundedTransaction,
		}); err != nil {
			return refundFailed, fmt.Errorf("close transaction %s: %w", tx.ID, err)
		}
		return refundConfirmed, nil
	}

	result, err := s.adapter.RefundPayment(ctx, &provider.RefundParams{
		Transaction: tx,
		Reservation: r,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
	})
	if err != nil || result == nil {
		logger.Error("refund failed", "reservation_id", r.ID, "transaction_id", tx.ID, "error", err)
		return refundFailed, nil
	}

	meta["refund_id"] = result.ProviderID
	meta["refund_status"] = string(result.Status)
	update := repository.TransactionUpdate{
		Metadata:     meta,
		RawResponse:  result.Raw,
		FromStatuses: unrefundedTransaction,
	}
	outcome := refundPending
	if result.Status == provider.RefundRefunded {
		update.Status = &refunded
		outcome = refundConfirmed
	}
	if _, err := s.store.UpdateTransaction(ctx, tx.ID, update); err != nil {
		return refundFailed, fmt.Errorf("record refund of transaction %s: %w", tx.ID, err)
	}
	return outcome, nil
}

// refundTargets lists the transactions of r that still hold money:
// the active one unless already refunded, plus every other captured charge.
// A refund already requested from the provider is recorded as refund_id.
func refundTargets(r *presale.Reservation, txs []*presale.Transaction) []*presale.Transaction {
	active := activeTransaction(r, txs)
	var out []*presale.Transaction
	for _, tx := range txs {
		if tx.Status == presale.TransactionRefunded {
			continue
		}
		if tx == active || tx.Status == presale.TransactionSucceeded {
			out = append(out, tx)
		}
	}
	return out
}

// activeTransaction picks the transaction a reservation points at, or its
// most recent one. txs is ordered by creation time.
func activeTransaction(r *presale.Reservation, txs []*presale.Transaction) *presale.Transaction {
	if len(txs) == 0 {
		return nil
	}
	if r.TxID != nil {
		for _, tx := range txs {
			if tx.ID == *r.TxID {
				return tx
			}
		}
	}
	return txs[len(txs)-1]
}
