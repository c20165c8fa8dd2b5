package events

// EventTypes maps each event type to a constructor, used by transports that
// must decode an envelope back into a concrete event.
var EventTypes = map[string]func() Event{
	EventTypePaymentInitiated.String():    func() Event { return &PaymentInitiated{} },
	EventTypeWebhookProcessed.String():    func() Event { return &WebhookProcessed{} },
	EventTypeReservationAssigned.String(): func() Event { return &ReservationAssigned{} },
	EventTypeReservationRefunded.String(): func() Event { return &ReservationRefunded{} },
	EventTypeRoundFinalized.String():      func() Event { return &RoundFinalized{} },
}
