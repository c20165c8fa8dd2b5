package stripepayment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/money"
	"github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ProviderName is recorded on transactions and webhooks handled by Stripe.
const ProviderName = "stripe"

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// Config contains the configuration for the Stripe payment provider.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// Tolerance is the maximum accepted age of a signed webhook.
	Tolerance time.Duration
}

// PaymentIntentCreator is the subset of the Stripe payment-intent service in use.
type PaymentIntentCreator interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

// RefundCreator is the subset of the Stripe refund service in use.
type RefundCreator interface {
	Create(ctx context.Context, params *stripe.RefundCreateParams) (*stripe.Refund, error)
}

// StripePaymentProvider implements payment.Adapter using the Stripe API.
type StripePaymentProvider struct {
	intents         PaymentIntentCreator
	refunds         RefundCreator
	cfg             Config
	logger          *slog.Logger
	webhookHandlers map[stripe.EventType]webhookHandler
}

type webhookHandler func(stripe.Event, *slog.Logger) (*payment.Event, error)

// New creates a StripePaymentProvider backed by the live Stripe client.
func New(cfg Config, logger *slog.Logger) *StripePaymentProvider {
	client := stripe.NewClient(cfg.SecretKey)
	return NewWithServices(client.V1PaymentIntents, client.V1Refunds, cfg, logger)
}

// NewWithServices creates a StripePaymentProvider with explicit services.
func NewWithServices(
	intents PaymentIntentCreator,
	refunds RefundCreator,
	cfg Config,
	logger *slog.Logger,
) *StripePaymentProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = webhook.DefaultTolerance
	}
	p := &StripePaymentProvider{
		intents: intents,
		refunds: refunds,
		cfg:     cfg,
		logger:  logger.With("provider", ProviderName),
	}
	p.initializeWebhookHandlers()
	return p
}

// initializeWebhookHandlers sets up the handlers for the Stripe events we map.
func (s *StripePaymentProvider) initializeWebhookHandlers() {
	s.webhookHandlers = map[stripe.EventType]webhookHandler{
		"payment_intent.succeeded":       s.handlePaymentIntent(payment.EventSucceeded),
		"payment_intent.processing":      s.handlePaymentIntent(payment.EventProcessing),
		"payment_intent.requires_action": s.handlePaymentIntent(payment.EventRequiresAction),
		"payment_intent.payment_failed":  s.handlePaymentIntent(payment.EventFailed),
		"charge.refunded":                s.handleChargeRefunded,
		"refund.created":                 s.handleRefund,
		"refund.updated":                 s.handleRefund,
	}
}

// Name implements payment.Adapter.
func (s *StripePaymentProvider) Name() string { return ProviderName }

// CreatePaymentIntent creates a PaymentIntent in Stripe.
func (s *StripePaymentProvider) CreatePaymentIntent(
	ctx context.Context,
	params *payment.IntentParams,
) (*payment.IntentResult, error) {
	if params == nil || params.Reservation == nil {
		return nil, fmt.Errorf("%w: reservation is required", domain.ErrAdapterFailure)
	}
	log := s.logger.With(
		"handler", "stripe.CreatePaymentIntent",
		"reservation_id", params.Reservation.ID,
		"transaction_id", params.TransactionID,
		"amount", params.Amount(),
		"currency", params.Currency(),
	)
	log.Info("🛒 [START] CreatePaymentIntent")

	amount, err := money.ToMinorUnits(params.Amount(), params.Currency())
	if err != nil {
		log.Error("invalid amount", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
	}

	piParams := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(params.Currency())),
	}
	if params.Round != nil {
		piParams.Description = stripe.String("Presale deposit for round " + params.Round.ID.String())
	}
	if params.Buyer != nil && params.Buyer.Email != "" {
		piParams.ReceiptEmail = stripe.String(params.Buyer.Email)
	}
	piParams.AddMetadata("reservation_id", params.Reservation.ID.String())
	piParams.AddMetadata("transaction_id", params.TransactionID.String())
	if params.Round != nil {
		piParams.AddMetadata("round_id", params.Round.ID.String())
	}
	piParams.SetIdempotencyKey("presale-" + params.TransactionID.String())

	pi, err := s.intents.Create(ctx, piParams)
	if err != nil {
		log.Error("failed to create payment intent", "error", err)
		return nil, fmt.Errorf("%w: create payment intent: %v", domain.ErrAdapterFailure, err)
	}

	status := mapIntentStatus(pi.Status)
	log.Info("✅ Payment intent created", "payment_intent_id", pi.ID, "status", status)
	return &payment.IntentResult{
		ProviderID:   pi.ID,
		Status:       status,
		ClientSecret: pi.ClientSecret,
		Raw:          rawJSON(pi.LastResponse, pi),
	}, nil
}

// RefundPayment refunds the PaymentIntent referenced by the transaction.
func (s *StripePaymentProvider) RefundPayment(
	ctx context.Context,
	params *payment.RefundParams,
) (*payment.RefundResult, error) {
	if params == nil || params.Transaction == nil || !params.Transaction.HasExternalID() {
		return nil, fmt.Errorf("%w: refund requires a payment intent id", domain.ErrAdapterFailure)
	}
	log := s.logger.With(
		"handler", "stripe.RefundPayment",
		"transaction_id", params.Transaction.ID,
		"payment_intent_id", *params.Transaction.ExternalID,
	)

	amount, err := money.ToMinorUnits(params.Amount, params.Currency)
	if err != nil {
		log.Error("invalid refund amount", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
	}
	rParams := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(*params.Transaction.ExternalID),
		Amount:        stripe.Int64(amount),
	}
	rParams.AddMetadata("transaction_id", params.Transaction.ID.String())
	rParams.SetIdempotencyKey("presale-refund-" + params.Transaction.ID.String())

	r, err := s.refunds.Create(ctx, rParams)
	if err != nil {
		log.Error("failed to create refund", "error", err)
		return nil, fmt.Errorf("%w: create refund: %v", domain.ErrAdapterFailure, err)
	}

	status := payment.RefundPending
	if r.Status == stripe.RefundStatusSucceeded {
		status = payment.RefundRefunded
	}
	log.Info("💸 Refund created", "refund_id", r.ID, "status", r.Status)
	return &payment.RefundResult{
		ProviderID: r.ID,
		Status:     status,
		Raw:        rawJSON(r.LastResponse, r),
	}, nil
}

// VerifyWebhook authenticates the Stripe-Signature header and maps the event.
func (s *StripePaymentProvider) VerifyWebhook(
	ctx context.Context,
	payload []byte,
	headers map[string]string,
) (*payment.Event, error) {
	log := s.logger.With("method", "VerifyWebhook")

	if s.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook signing secret not configured", domain.ErrInvalidSignature)
	}
	header := payment.HeaderValue(headers, SignatureHeader)
	if err := webhook.ValidatePayloadWithTolerance(payload, header, s.cfg.WebhookSecret, s.cfg.Tolerance); err != nil {
		log.Warn("Failed to verify webhook signature", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn("Failed to parse webhook event", "error", err)
		return nil, nil
	}
	log.Info("Received webhook event", "type", event.Type, "id", event.ID)

	handler, ok := s.webhookHandlers[event.Type]
	if !ok || event.ID == "" {
		log.Debug("No handler found for event type", "type", event.Type)
		return nil, nil
	}
	if event.Data == nil || event.Data.Raw == nil {
		log.Warn("event data is nil", "type", event.Type)
		return nil, nil
	}
	evt, err := handler(event, log)
	if err != nil {
		log.Warn("Failed to map webhook event", "error", err)
		return nil, nil
	}
	if evt != nil {
		evt.Payload = payload
	}
	return evt, nil
}

func (s *StripePaymentProvider) handlePaymentIntent(status string) webhookHandler {
	return func(event stripe.Event, log *slog.Logger) (*payment.Event, error) {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
		}
		if pi.ID == "" {
			return nil, errors.New("payment intent ID is empty")
		}
		amount, err := money.FromMinorUnits(pi.Amount, string(pi.Currency))
		if err != nil {
			amount = decimal.Zero
		}
		log.Info("💰 Handling payment intent event",
			"payment_intent_id", pi.ID,
			"status", status,
			"amount", amount.String(),
			"currency", pi.Currency,
		)
		return newEvent(event, status, pi.ID, pi.Metadata), nil
	}
}

func (s *StripePaymentProvider) handleChargeRefunded(event stripe.Event, log *slog.Logger) (*payment.Event, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal charge: %w", err)
	}
	if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
		return nil, errors.New("charge has no payment intent")
	}
	log.Info("💸 Handling charge.refunded", "charge_id", ch.ID, "payment_intent_id", ch.PaymentIntent.ID)
	return newEvent(event, payment.EventRefunded, ch.PaymentIntent.ID, ch.Metadata), nil
}

func (s *StripePaymentProvider) handleRefund(event stripe.Event, log *slog.Logger) (*payment.Event, error) {
	var r stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refund: %w", err)
	}
	if r.PaymentIntent == nil || r.PaymentIntent.ID == "" {
		return nil, errors.New("refund has no payment intent")
	}
	if r.Status != stripe.RefundStatusSucceeded {
		log.Debug("refund not settled yet", "refund_id", r.ID, "status", r.Status)
		return newEvent(event, string(r.Status), r.PaymentIntent.ID, r.Metadata), nil
	}
	return newEvent(event, payment.EventRefunded, r.PaymentIntent.ID, r.Metadata), nil
}

func newEvent(event stripe.Event, status, externalID string, metadata map[string]string) *payment.Event {
	return &payment.Event{
		ID:            event.ID,
		Provider:      ProviderName,
		Type:          string(event.Type),
		Status:        status,
		ExternalID:    externalID,
		ReservationID: payment.ParseUUID(metadata["reservation_id"]),
		TransactionID: payment.ParseUUID(metadata["transaction_id"]),
	}
}

func mapIntentStatus(status stripe.PaymentIntentStatus) payment.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return payment.IntentSucceeded
	case stripe.PaymentIntentStatusProcessing:
		return payment.IntentProcessing
	default:
		return payment.IntentRequiresAction
	}
}

func rawJSON(resp *stripe.APIResponse, v any) []byte {
	if resp != nil && len(resp.RawJSON) > 0 {
		return resp.RawJSON
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

var _ payment.Adapter = (*StripePaymentProvider)(nil)
