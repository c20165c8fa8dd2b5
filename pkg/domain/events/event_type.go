package events

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	EventTypePaymentInitiated    EventType = "Payment.Initiated"
	EventTypeWebhookProcessed    EventType = "Webhook.Processed"
	EventTypeReservationAssigned EventType = "Reservation.Assigned"
	EventTypeReservationRefunded EventType = "Reservation.Refunded"
	EventTypeRoundFinalized      EventType = "Round.Finalized"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}
