package presale

import (
	"time"

	"github.com/google/uuid"
)

// WebhookStatus is the processing state of a stored webhook.
type WebhookStatus string

const (
	WebhookPending   WebhookStatus = "pending"
	WebhookProcessed WebhookStatus = "processed"
	WebhookIgnored   WebhookStatus = "ignored"
)

// WebhookEvent is a persisted inbound provider notification. ID is the
// provider's own event id so re-deliveries land on the same row.
type WebhookEvent struct {
	ID            string
	Provider      string
	EventType     string
	Payload       []byte
	ReservationID *uuid.UUID
	TransactionID *uuid.UUID
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
	Status        WebhookStatus
}
