package payment

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// genericEvent is the permissive JSON shape accepted from providers that do
// not sign their webhooks.
type genericEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	ExternalID     string `json:"externalId"`
	ExternalIDAlt  string `json:"external_id"`
	Reservation    string `json:"reservationId"`
	ReservationAlt string `json:"reservation_id"`
	Transaction    string `json:"transactionId"`
	TransactionAlt string `json:"transaction_id"`
}

// ParseEvent is the default webhook parser. It never fails: payloads that
// are not JSON or lack an id and status yield nil.
func ParseEvent(provider string, payload []byte) *Event {
	var g genericEvent
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil
	}
	status := strings.ToLower(strings.TrimSpace(g.Status))
	if g.ID == "" || status == "" {
		return nil
	}
	if g.Type == "" {
		g.Type = "payment." + status
	}
	return &Event{
		ID:            g.ID,
		Provider:      provider,
		Type:          g.Type,
		Status:        status,
		ExternalID:    firstNonEmpty(g.ExternalID, g.ExternalIDAlt),
		ReservationID: parseUUID(firstNonEmpty(g.Reservation, g.ReservationAlt)),
		TransactionID: parseUUID(firstNonEmpty(g.Transaction, g.TransactionAlt)),
		Payload:       payload,
	}
}

// ParseUUID returns nil for empty or malformed ids.
func ParseUUID(s string) *uuid.UUID {
	return parseUUID(s)
}

func parseUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
