// Package repository defines the data-access contract consumed by the
// payment service.
//
// Getters return (nil, nil) when the id does not exist. Updates are patches
// with an optional status guard: the write is applied atomically only when
// the stored row is in one of FromStatuses, and (nil, nil) is returned when
// no row matched.
package repository

import (
	"context"
	"time"

	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/google/uuid"
)

// Store is the persistence boundary of the presale engine.
type Store interface {
	// Do runs fn inside a single storage transaction.
	Do(ctx context.Context, fn func(Store) error) error

	GetProjectByID(ctx context.Context, id uuid.UUID) (*presale.Project, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*presale.User, error)

	GetRoundByID(ctx context.Context, id uuid.UUID) (*presale.Round, error)
	GetRounds(ctx context.Context, filter RoundFilter) ([]*presale.Round, error)
	UpdateRound(ctx context.Context, id uuid.UUID, update RoundUpdate) (*presale.Round, error)

	GetReservationByID(ctx context.Context, id uuid.UUID) (*presale.Reservation, error)
	GetReservationsByRoundID(ctx context.Context, roundID uuid.UUID) ([]*presale.Reservation, error)
	UpdateReservation(
		ctx context.Context,
		id uuid.UUID,
		update ReservationUpdate,
	) (*presale.Reservation, error)

	CreateTransaction(ctx context.Context, tx *presale.Transaction) error
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*presale.Transaction, error)
	// GetTransactionByReservationID returns the most recent transaction of the reservation.
	GetTransactionByReservationID(ctx context.Context, reservationID uuid.UUID) (*presale.Transaction, error)
	GetTransactionByExternalID(ctx context.Context, provider, externalID string) (*presale.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]*presale.Transaction, error)
	UpdateTransaction(
		ctx context.Context,
		id uuid.UUID,
		update TransactionUpdate,
	) (*presale.Transaction, error)

	GetPaymentWebhookByID(ctx context.Context, id string) (*presale.WebhookEvent, error)
	CreatePaymentWebhook(ctx context.Context, evt *presale.WebhookEvent) error
	// UpsertPaymentWebhook inserts evt or overwrites the delivery columns of
	// an existing row with the same id, and returns the stored row. The
	// processing status of an existing row is preserved.
	UpsertPaymentWebhook(ctx context.Context, evt *presale.WebhookEvent) (*presale.WebhookEvent, error)
	UpdatePaymentWebhook(
		ctx context.Context,
		id string,
		update WebhookUpdate,
	) (*presale.WebhookEvent, error)
}

// RoundFilter narrows GetRounds. Zero values match everything.
type RoundFilter struct {
	// DueBefore keeps rounds whose deadline is at or before the given instant.
	DueBefore *time.Time
	Statuses  []presale.RoundStatus
}

// TransactionFilter narrows GetTransactions.
type TransactionFilter struct {
	ReservationIDs []uuid.UUID
	Statuses       []presale.TransactionStatus
}

// RoundUpdate is a partial update of a round.
type RoundUpdate struct {
	Status       *presale.RoundStatus
	GroupSlots   *int
	FromStatuses []presale.RoundStatus
}

// ReservationUpdate is a partial update of a reservation.
type ReservationUpdate struct {
	Status       *presale.ReservationStatus
	TxID         *uuid.UUID
	FromStatuses []presale.ReservationStatus
}

// TransactionUpdate is a partial update of a transaction. Metadata replaces
// the stored map when non-nil.
type TransactionUpdate struct {
	Status       *presale.TransactionStatus
	ExternalID   *string
	ClientSecret *string
	RawResponse  []byte
	Metadata     map[string]string
	PayoutAt     *time.Time
	FromStatuses []presale.TransactionStatus
}

// WebhookUpdate is a partial update of a stored webhook event.
type WebhookUpdate struct {
	Status        *presale.WebhookStatus
	ProcessedAt   *time.Time
	ReservationID *uuid.UUID
	TransactionID *uuid.UUID
	FromStatuses  []presale.WebhookStatus
}
