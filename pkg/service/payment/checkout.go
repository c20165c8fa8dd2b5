package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/domain/presale"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/amirasaad/presale/pkg/repository"
	"github.com/google/uuid"
)

// chargeable lists the reservation statuses a checkout may move from.
var chargeable = []presale.ReservationStatus{
	presale.ReservationPending,
	presale.ReservationConfirmed,
	presale.ReservationWaitlisted,
}

// CheckoutResult is the outcome of InitiateReservationPayment.
type CheckoutResult struct {
	Transaction  *presale.Transaction
	Reservation  *presale.Reservation
	ClientSecret string
	// NextAction is the provider's non-terminal intent status, empty when
	// no client step is pending.
	NextAction string
}

// InitiateReservationPayment charges a reservation through the payment
// adapter and records the attempt. Waitlisted reservations are never sent
// to the provider; they get a pending transaction instead.
//
// Nothing is persisted when the adapter call fails.
func (s *Service) InitiateReservationPayment(
	ctx context.Context,
	reservationID uuid.UUID,
) (*CheckoutResult, error) {
	logger := s.logger.With("op", "checkout", "reservation_id", reservationID)

	reservation, err := s.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, domain.ErrNotFound)
	}
	if reservation.IsTerminal() {
		return nil, fmt.Errorf("reservation %s is %s: %w", reservationID, reservation.Status, domain.ErrInvalidState)
	}

	round, err := s.store.GetRoundByID(ctx, reservation.RoundID)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	if round == nil {
		return nil, fmt.Errorf("round %s: %w", reservation.RoundID, domain.ErrNotFound)
	}
	project, err := s.store.GetProjectByID(ctx, round.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", round.ProjectID, domain.ErrNotFound)
	}
	buyer, err := s.store.GetUserByID(ctx, reservation.UserID)
	if err != nil {
		logger.Warn("buyer lookup failed, continuing without receipt e-mail", "error", err)
		buyer = nil
	}

	tx := &presale.Transaction{
		ID:            uuid.New(),
		ReservationID: reservation.ID,
		Provider:      s.adapter.Name(),
		Amount:        reservation.Amount,
		Currency:      project.Currency,
		Status:        presale.TransactionPending,
		Metadata:      map[string]string{"round_id": round.ID.String()},
		CreatedAt:     s.now(),
	}

	var intent *provider.IntentResult
	nextStatus := presale.ReservationPending
	if reservation.Status == presale.ReservationWaitlisted {
		nextStatus = presale.ReservationWaitlisted
		tx.Metadata["waitlisted"] = "true"
	} else {
		intent, err = s.adapter.CreatePaymentIntent(ctx, &provider.IntentParams{
			TransactionID: tx.ID,
			Reservation:   reservation,
			Round:         round,
			Project:       project,
			Buyer:         buyer,
		})
		if err != nil {
			logger.Error("payment intent failed", "error", err)
			if !errors.Is(err, domain.ErrAdapterFailure) {
				err = fmt.Errorf("%w: %w", domain.ErrAdapterFailure, err)
			}
			return nil, err
		}
		if intent == nil {
			return nil, fmt.Errorf("%w: empty payment intent", domain.ErrAdapterFailure)
		}
		tx.ExternalID = ptr(intent.ProviderID)
		tx.RawResponse = intent.Raw
		tx.Metadata["intent_status"] = string(intent.Status)
		if intent.ClientSecret != "" {
			tx.ClientSecret = ptr(intent.ClientSecret)
		}
		if intent.Status == provider.IntentSucceeded {
			tx.Status = presale.TransactionSucceeded
			nextStatus = presale.ReservationConfirmed
		}
	}

	updated := reservation
	err = s.store.Do(ctx, func(st repository.Store) error {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		res, err := st.UpdateReservation(ctx, reservation.ID, repository.ReservationUpdate{
			Status:       &nextStatus,
			TxID:         &tx.ID,
			FromStatuses: chargeable,
		})
		if err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		if res == nil {
			logger.Warn("reservation changed concurrently, keeping loaded copy")
			return nil
		}
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProgress(ctx, round.ID)
	logger.Info("payment initiated",
		"transaction_id", tx.ID,
		"transaction_status", tx.Status,
		"reservation_status", updated.Status,
	)

	evt := events.PaymentInitiated{
		TransactionID:     tx.ID,
		ReservationID:     updated.ID,
		UserID:            updated.UserID,
		Provider:          tx.Provider,
		TransactionStatus: string(tx.Status),
		ReservationStatus: string(updated.Status),
		Amount:            tx.Amount.String(),
		Currency:          tx.Currency,
		OccurredAt:        s.now(),
	}
	if buyer != nil {
		evt.BuyerEmail = buyer.Email
	}
	s.emit(ctx, evt)

	result := &CheckoutResult{Transaction: tx, Reservation: updated}
	if intent != nil {
		result.ClientSecret = intent.ClientSecret
		if !intent.Status.IsTerminal() {
			result.NextAction = string(intent.Status)
		}
	}
	return result, nil
}
