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
)

var (
	// confirmable lists the reservation statuses a succeeded payment may confirm.
	confirmable = []presale.ReservationStatus{
		presale.ReservationPending,
		presale.ReservationWaitlisted,
	}
	// refundable lists the reservation statuses a provider refund may close.
	refundable = []presale.ReservationStatus{
		presale.ReservationPending,
		presale.ReservationConfirmed,
		presale.ReservationWaitlisted,
		presale.ReservationAssigned,
	}
	openTransaction       = presale.TransactionStatusesBefore(presale.TransactionSucceeded)
	unrefundedTransaction = presale.TransactionStatusesBefore(presale.TransactionRefunded)
)

// HandleWebhook verifies an inbound provider notification, stores it keyed
// by the provider's event id and applies its effect on the matching
// transaction and reservation.
//
// Unverifiable payloads are rejected before anything is stored. A
// re-delivery of an already processed event returns the stored row without
// applying side effects again.
func (s *Service) HandleWebhook(
	ctx context.Context,
	payload []byte,
	headers map[string]string,
) (*presale.WebhookEvent, error) {
	evt, err := s.adapter.VerifyWebhook(ctx, payload, headers)
	if err != nil {
		s.logger.Warn("webhook rejected", "provider", s.adapter.Name(), "error", err)
		if !errors.Is(err, domain.ErrInvalidSignature) && !errors.Is(err, domain.ErrInvalidPayload) {
			err = fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
		}
		return nil, err
	}
	if evt == nil || evt.ID == "" {
		return nil, fmt.Errorf("webhook not recognized: %w", domain.ErrInvalidPayload)
	}

	v, err, shared := s.webhooks.Do(evt.ID, func() (any, error) {
		return s.processWebhook(ctx, evt)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("webhook delivery coalesced", "event_id", evt.ID)
	}
	return v.(*presale.WebhookEvent), nil
}

func (s *Service) processWebhook(ctx context.Context, evt *provider.Event) (*presale.WebhookEvent, error) {
	logger := s.logger.With("op", "webhook", "event_id", evt.ID, "event_type", evt.Type, "status", evt.Status)

	providerName := evt.Provider
	if providerName == "" {
		providerName = s.adapter.Name()
	}
	stored, err := s.store.UpsertPaymentWebhook(ctx, &presale.WebhookEvent{
		ID:            evt.ID,
		Provider:      providerName,
		EventType:     evt.Type,
		Payload:       evt.Payload,
		ReservationID: evt.ReservationID,
		TransactionID: evt.TransactionID,
		ReceivedAt:    s.now(),
		Status:        presale.WebhookPending,
	})
	if err != nil {
		return nil, fmt.Errorf("store webhook: %w", err)
	}
	if stored.Status == presale.WebhookProcessed {
		logger.Info("duplicate webhook delivery ignored")
		return stored, nil
	}

	tx, err := s.correlate(ctx, providerName, evt)
	if err != nil {
		return nil, err
	}

	var (
		reservation *presale.Reservation
		refunded    bool
	)
	if tx != nil {
		reservation, refunded, err = s.applyWebhook(ctx, tx, evt)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no transaction matches webhook")
	}

	processed := presale.WebhookProcessed
	update := repository.WebhookUpdate{
		Status:       &processed,
		ProcessedAt:  ptr(s.now()),
		FromStatuses: []presale.WebhookStatus{presale.WebhookPending},
	}
	if tx != nil {
		update.TransactionID = &tx.ID
		update.ReservationID = &tx.ReservationID
	}
	final, err := s.store.UpdatePaymentWebhook(ctx, evt.ID, update)
	if err != nil {
		return nil, fmt.Errorf("mark webhook processed: %w", err)
	}
	if final == nil {
		if final, err = s.store.GetPaymentWebhookByID(ctx, evt.ID); err != nil {
			return nil, fmt.Errorf("reload webhook: %w", err)
		}
		if final == nil {
			return nil, fmt.Errorf("webhook %s: %w", evt.ID, domain.ErrNotFound)
		}
	}
	logger.Info("webhook processed", "matched", tx != nil)

	processedEvt := events.WebhookProcessed{
		WebhookID:  final.ID,
		Provider:   final.Provider,
		EventType:  final.EventType,
		Matched:    tx != nil,
		OccurredAt: s.now(),
	}
	if tx != nil {
		processedEvt.TransactionID = &tx.ID
		processedEvt.ReservationID = &tx.ReservationID
	}
	s.emit(ctx, processedEvt)
	if reservation != nil {
		s.invalidateProgress(ctx, reservation.RoundID)
	}
	if refunded && reservation != nil {
		s.emit(ctx, events.ReservationRefunded{
			ReservationID:   reservation.ID,
			RoundID:         reservation.RoundID,
			UserID:          reservation.UserID,
			RefundConfirmed: true,
			OccurredAt:      s.now(),
		})
	}
	return final, nil
}

// correlate finds the transaction an event refers to: by transaction id,
// then by the reservation's most recent transaction, then by provider id.
func (s *Service) correlate(ctx context.Context, providerName string, evt *provider.Event) (*presale.Transaction, error) {
	if evt.TransactionID != nil {
		tx, err := s.store.GetTransactionByID(ctx, *evt.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("load transaction: %w", err)
		}
		if tx != nil {
			return tx, nil
		}
	}
	if evt.ReservationID != nil {
		tx, err := s.store.GetTransactionByReservationID(ctx, *evt.ReservationID)
		if err != nil {
			return nil, fmt.Errorf("load transaction by reservation: %w", err)
		}
		if tx != nil {
			return tx, nil
		}
	}
	if evt.ExternalID != "" {
		tx, err := s.store.GetTransactionByExternalID(ctx, providerName, evt.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("load transaction by external id: %w", err)
		}
		return tx, nil
	}
	return nil, nil
}

// applyWebhook moves the transaction and its reservation according to the
// event status. It returns the reservation when its status changed.
func (s *Service) applyWebhook(
	ctx context.Context,
	tx *presale.Transaction,
	evt *provider.Event,
) (reservation *presale.Reservation, refunded bool, err error) {
	var externalID *string
	if evt.ExternalID != "" {
		externalID = ptr(evt.ExternalID)
	}

	err = s.store.Do(ctx, func(st repository.Store) error {
		switch evt.Status {
		case provider.EventSucceeded:
			succeeded := presale.TransactionSucceeded
			updated, err := st.UpdateTransaction(ctx, tx.ID, repository.TransactionUpdate{
				Status:       &succeeded,
				ExternalID:   externalID,
				RawResponse:  evt.Payload,
				FromStatuses: openTransaction,
			})
			if err != nil {
				return fmt.Errorf("update transaction: %w", err)
			}
			if updated == nil && tx.Status != presale.TransactionSucceeded {
				return nil
			}
			confirmed := presale.ReservationConfirmed
			res, err := st.UpdateReservation(ctx, tx.ReservationID, repository.ReservationUpdate{
				Status:       &confirmed,
				FromStatuses: confirmable,
			})
			if err != nil {
				return fmt.Errorf("update reservation: %w", err)
			}
			reservation = res

		case provider.EventRefunded:
			status := presale.TransactionRefunded
			if _, err := st.UpdateTransaction(ctx, tx.ID, repository.TransactionUpdate{
				Status:       &status,
				ExternalID:   externalID,
				RawResponse:  evt.Payload,
				FromStatuses: unrefundedTransaction,
			}); err != nil {
				return fmt.Errorf("update transaction: %w", err)
			}
			resStatus := presale.ReservationRefunded
			res, err := st.UpdateReservation(ctx, tx.ReservationID, repository.ReservationUpdate{
				Status:       &resStatus,
				FromStatuses: refundable,
			})
			if err != nil {
				return fmt.Errorf("update reservation: %w", err)
			}
			if res != nil {
				reservation, refunded = res, true
			}

		default:
			if _, err := st.UpdateTransaction(ctx, tx.ID, repository.TransactionUpdate{
				ExternalID:   externalID,
				RawResponse:  evt.Payload,
				FromStatuses: openTransaction,
			}); err != nil {
				return fmt.Errorf("record transaction event: %w", err)
			}
		}
		return nil
	})
	return reservation, refunded, err
}
