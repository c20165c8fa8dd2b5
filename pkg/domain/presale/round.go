// Package presale holds the group-presale entities: projects, funding rounds,
// reservations, payment transactions and inbound payment webhooks.
package presale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalType selects which metric a round's goal is measured in.
type GoalType string

const (
	// GoalReservations measures the goal in confirmed slots.
	GoalReservations GoalType = "reservations"
	// GoalAmount measures the goal in confirmed money.
	GoalAmount GoalType = "amount"
)

// Rule decides how a round succeeds at its deadline.
type Rule string

const (
	// RuleAllOrNothing succeeds only when the full goal is met.
	RuleAllOrNothing Rule = "all_or_nothing"
	// RulePartial also succeeds when the partial threshold is cleared.
	RulePartial Rule = "partial"
)

// RoundStatus is the lifecycle state of a round.
type RoundStatus string

const (
	RoundOpen       RoundStatus = "open"
	RoundNearlyFull RoundStatus = "nearly_full"
	RoundClosed     RoundStatus = "closed"
	RoundNotMet     RoundStatus = "not_met"
	RoundFulfilled  RoundStatus = "fulfilled"
)

// Round is a time-boxed group-funding campaign for one project.
type Round struct {
	ID             uuid.UUID
	ProjectID      uuid.UUID
	GoalType       GoalType
	GoalValue      decimal.Decimal
	DepositAmount  decimal.Decimal
	SlotsPerPerson int
	DeadlineAt     time.Time
	Rule           Rule
	// PartialThreshold is a fraction in [0,1]; only meaningful for RulePartial.
	PartialThreshold float64
	Status           RoundStatus
	GroupSlots       *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsDue reports whether the round's deadline has passed at ref.
func (r *Round) IsDue(ref time.Time) bool {
	return !r.DeadlineAt.After(ref)
}

// AcceptsReconciliation reports whether the sweep may still evaluate the round.
func (r *Round) AcceptsReconciliation() bool {
	return r.Status == RoundOpen || r.Status == RoundNearlyFull
}

// Project owns rounds and fixes their currency.
type Project struct {
	ID        uuid.UUID
	Name      string
	Currency  string
	CreatedAt time.Time
}

// User is a buyer. Only the fields the payment flow needs are carried.
type User struct {
	ID    uuid.UUID
	Email string
	Name  string
}
