// Package events defines the domain events the payment service publishes
// after each committed state change.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is anything that can travel over the event bus.
type Event interface {
	Type() string
}

// PaymentInitiated is emitted after a checkout persisted a transaction.
type PaymentInitiated struct {
	TransactionID     uuid.UUID
	ReservationID     uuid.UUID
	UserID            uuid.UUID
	Provider          string
	TransactionStatus string
	ReservationStatus string
	// BuyerEmail is empty when the buyer could not be loaded; receipts are skipped then.
	BuyerEmail string
	Amount     string
	Currency   string
	OccurredAt time.Time
}

func (e PaymentInitiated) Type() string { return EventTypePaymentInitiated.String() }

// WebhookProcessed is emitted once a webhook has been applied.
type WebhookProcessed struct {
	WebhookID     string
	Provider      string
	EventType     string
	TransactionID *uuid.UUID
	ReservationID *uuid.UUID
	Matched       bool
	OccurredAt    time.Time
}

func (e WebhookProcessed) Type() string { return EventTypeWebhookProcessed.String() }

// ReservationAssigned is emitted when reconciliation assigns slots to a buyer.
type ReservationAssigned struct {
	ReservationID uuid.UUID
	RoundID       uuid.UUID
	UserID        uuid.UUID
	Slots         int
	OccurredAt    time.Time
}

func (e ReservationAssigned) Type() string { return EventTypeReservationAssigned.String() }

// ReservationRefunded is emitted when a reservation is refunded, either by
// reconciliation or by a provider refund notification.
type ReservationRefunded struct {
	ReservationID uuid.UUID
	RoundID       uuid.UUID
	UserID        uuid.UUID
	// RefundConfirmed is false while the provider has not yet confirmed the refund.
	RefundConfirmed bool
	OccurredAt      time.Time
}

func (e ReservationRefunded) Type() string { return EventTypeReservationRefunded.String() }

// RoundFinalized is emitted when reconciliation decides a round.
type RoundFinalized struct {
	RoundID     uuid.UUID
	ProjectID   uuid.UUID
	Status      string
	Percent     int
	Assignments int
	Refunds     int
	ReferenceAt time.Time
	OccurredAt  time.Time
}

func (e RoundFinalized) Type() string { return EventTypeRoundFinalized.String() }
