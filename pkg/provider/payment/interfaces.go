package payment

import (
	"context"
)

// Adapter abstracts a single external payment processor. Implementations are
// selected once at start-up and injected into the payment service.
type Adapter interface {
	// Name identifies the provider on persisted transactions and webhooks.
	Name() string

	// CreatePaymentIntent starts a charge for a reservation. It is called at
	// most once per checkout attempt; callers do not retry.
	CreatePaymentIntent(
		ctx context.Context,
		params *IntentParams,
	) (*IntentResult, error)

	// RefundPayment returns a captured amount to the buyer.
	RefundPayment(
		ctx context.Context,
		params *RefundParams,
	) (*RefundResult, error)

	// VerifyWebhook authenticates and parses an inbound notification.
	// It returns (nil, nil) for payloads it does not recognize and an error
	// wrapping domain.ErrInvalidSignature when authentication fails.
	VerifyWebhook(
		ctx context.Context,
		payload []byte,
		headers map[string]string,
	) (*Event, error)
}
