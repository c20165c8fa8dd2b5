package payment

import (
	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentStatus is the provider-agnostic state of a payment intent.
type IntentStatus string

const (
	// IntentRequiresAction means the buyer must complete a client-side step.
	IntentRequiresAction IntentStatus = "requires_action"
	// IntentProcessing means the provider accepted the charge but has not settled it.
	IntentProcessing IntentStatus = "processing"
	// IntentSucceeded means funds are captured.
	IntentSucceeded IntentStatus = "succeeded"
)

// IsTerminal reports whether no further client or provider step is expected.
func (s IntentStatus) IsTerminal() bool {
	return s == IntentSucceeded
}

// RefundStatus is the provider-agnostic state of a refund.
type RefundStatus string

const (
	// RefundPending means the provider has not yet confirmed the refund.
	RefundPending RefundStatus = "pending"
	// RefundRefunded means the provider confirmed the funds were returned.
	RefundRefunded RefundStatus = "refunded"
)

// EventStatus values carried by webhook events. Providers may report other
// non-terminal values; those are recorded without moving state.
const (
	EventSucceeded      = "succeeded"
	EventRefunded       = "refunded"
	EventProcessing     = "processing"
	EventRequiresAction = "requires_action"
	EventFailed         = "failed"
)

// IntentParams holds the parameters for CreatePaymentIntent.
type IntentParams struct {
	// TransactionID is allocated before the call so the provider can echo it back in webhooks.
	TransactionID uuid.UUID
	Reservation   *presale.Reservation
	Round         *presale.Round
	Project       *presale.Project
	// Buyer is nil when the user could not be loaded; receipt e-mails are skipped then.
	Buyer *presale.User
}

// Amount is the reservation amount in the project currency.
func (p *IntentParams) Amount() decimal.Decimal {
	return p.Reservation.Amount
}

// Currency is the project currency.
func (p *IntentParams) Currency() string {
	if p.Project == nil {
		return ""
	}
	return p.Project.Currency
}

// IntentResult is what CreatePaymentIntent reports.
type IntentResult struct {
	ProviderID   string
	Status       IntentStatus
	ClientSecret string
	// Raw is the provider payload, kept verbatim for audit.
	Raw []byte
}

// RefundParams holds the parameters for RefundPayment.
type RefundParams struct {
	Transaction *presale.Transaction
	Reservation *presale.Reservation
	Amount      decimal.Decimal
	Currency    string
}

// RefundResult is what RefundPayment reports.
type RefundResult struct {
	ProviderID string
	Status     RefundStatus
	Raw        []byte
}

// Event is a verified, parsed webhook notification.
type Event struct {
	// ID is the provider-assigned event id; storage is keyed by it.
	ID            string
	Provider      string
	Type          string
	Status        string
	ExternalID    string
	ReservationID *uuid.UUID
	TransactionID *uuid.UUID
	Payload       []byte
}
