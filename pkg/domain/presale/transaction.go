package presale

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderSimulated names the deterministic in-process payment provider.
const ProviderSimulated = "simulated"

// TransactionStatus is the state of one payment attempt.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionRefunded  TransactionStatus = "refunded"
)

var transactionOrder = []TransactionStatus{
	TransactionPending,
	TransactionSucceeded,
	TransactionRefunded,
}

// CanAdvanceTo reports whether moving to next keeps the status moving
// forward along pending → succeeded → refunded.
func (s TransactionStatus) CanAdvanceTo(next TransactionStatus) bool {
	from, to := slices.Index(transactionOrder, s), slices.Index(transactionOrder, next)
	return from >= 0 && to > from
}

// TransactionStatusesBefore lists the statuses that may advance to next.
func TransactionStatusesBefore(next TransactionStatus) []TransactionStatus {
	var out []TransactionStatus
	for _, s := range transactionOrder {
		if s.CanAdvanceTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// Transaction is one payment attempt for a reservation.
type Transaction struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	Provider      string
	Amount        decimal.Decimal
	Currency      string
	Status        TransactionStatus
	// ExternalID is the provider-side intent or charge id.
	ExternalID   *string
	Metadata     map[string]string
	RawResponse  []byte
	ClientSecret *string
	PayoutAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasExternalID reports whether the provider knows about this transaction.
func (t *Transaction) HasExternalID() bool {
	return t.ExternalID != nil && *t.ExternalID != ""
}
