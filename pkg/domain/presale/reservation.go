package presale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a buyer's claim on slots.
type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationWaitlisted ReservationStatus = "waitlisted"
	ReservationAssigned   ReservationStatus = "assigned"
	ReservationRefunded   ReservationStatus = "refunded"
)

// IsTerminal reports whether no further charge may be attempted.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationAssigned || s == ReservationRefunded
}

// IsSecured reports whether the reservation counts toward a round's goal.
func (s ReservationStatus) IsSecured() bool {
	return s == ReservationConfirmed || s == ReservationAssigned
}

// Reservation is a buyer's claim on slots within a round.
type Reservation struct {
	ID      uuid.UUID
	RoundID uuid.UUID
	UserID  uuid.UUID
	Slots   int
	// Amount is Slots × the round's deposit, in the project currency.
	Amount    decimal.Decimal
	Status    ReservationStatus
	TxID      *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the reservation is assigned or refunded.
func (r *Reservation) IsTerminal() bool {
	return r.Status.IsTerminal()
}
