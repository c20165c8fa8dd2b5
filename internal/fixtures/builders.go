package fixtures

import (
	"time"

	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project returns a USD project.
func Project() *presale.Project {
	return &presale.Project{
		ID:        uuid.New(),
		Name:      "Test Project",
		Currency:  "USD",
		CreatedAt: time.Now().UTC(),
	}
}

// User returns a buyer with an e-mail address.
func User() *presale.User {
	id := uuid.New()
	return &presale.User{ID: id, Email: id.String()[:8] + "@example.com", Name: "Buyer"}
}

// RoundBuilder builds rounds for tests.
type RoundBuilder struct {
	r presale.Round
}

// Round starts an open reservation-goal round with a $100 deposit and a
// deadline one hour in the past.
func Round(projectID uuid.UUID) *RoundBuilder {
	now := time.Now().UTC()
	return &RoundBuilder{r: presale.Round{
		ID:             uuid.New(),
		ProjectID:      projectID,
		GoalType:       presale.GoalReservations,
		GoalValue:      decimal.NewFromInt(30),
		DepositAmount:  decimal.NewFromInt(100),
		SlotsPerPerson: 10,
		DeadlineAt:     now.Add(-time.Hour),
		Rule:           presale.RuleAllOrNothing,
		Status:         presale.RoundOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}}
}

func (b *RoundBuilder) WithGoal(goal presale.GoalType, value int64) *RoundBuilder {
	b.r.GoalType = goal
	b.r.GoalValue = decimal.NewFromInt(value)
	return b
}

func (b *RoundBuilder) WithPartial(threshold float64) *RoundBuilder {
	b.r.Rule = presale.RulePartial
	b.r.PartialThreshold = threshold
	return b
}

func (b *RoundBuilder) WithDeadline(at time.Time) *RoundBuilder {
	b.r.DeadlineAt = at
	return b
}

func (b *RoundBuilder) WithStatus(s presale.RoundStatus) *RoundBuilder {
	b.r.Status = s
	return b
}

func (b *RoundBuilder) Build() *presale.Round {
	r := b.r
	return &r
}

// Reservation returns a reservation on round whose amount is slots × deposit.
func Reservation(round *presale.Round, userID uuid.UUID, slots int, status presale.ReservationStatus) *presale.Reservation {
	now := time.Now().UTC()
	return &presale.Reservation{
		ID:        uuid.New(),
		RoundID:   round.ID,
		UserID:    userID,
		Slots:     slots,
		Amount:    round.DepositAmount.Mul(decimal.NewFromInt(int64(slots))),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transaction returns a transaction for r with the given status. ext may be
// empty for a transaction the provider never saw.
func Transaction(r *presale.Reservation, provider string, status presale.TransactionStatus, ext string) *presale.Transaction {
	tx := &presale.Transaction{
		ID:            uuid.New(),
		ReservationID: r.ID,
		Provider:      provider,
		Amount:        r.Amount,
		Currency:      "USD",
		Status:        status,
		Metadata:      map[string]string{},
		CreatedAt:     time.Now().UTC(),
	}
	if ext != "" {
		tx.ExternalID = &ext
	}
	return tx
}
