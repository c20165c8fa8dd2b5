package simulated

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/amirasaad/presale/pkg/provider/payment"
)

// Config holds the options of the simulated provider.
type Config struct {
	// WebhookSecret enables signed-webhook verification when non-empty.
	WebhookSecret string
	// Tolerance bounds the age of a signed webhook; zero disables the check.
	Tolerance time.Duration
}

// Provider simulates a payment processor for local development and tests.
//
// It is deterministic and never touches the network:
//   - payment intents succeed immediately, except for waitlisted
//     reservations which stay "processing";
//   - refunds are confirmed immediately;
//   - webhooks are parsed with payment.ParseEvent, and signature-checked
//     only when a secret is configured.
type Provider struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a simulated provider.
func New(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.With("provider", presale.ProviderSimulated),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for signature tolerance checks.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// Name implements payment.Adapter.
func (p *Provider) Name() string { return presale.ProviderSimulated }

// CreatePaymentIntent implements payment.Adapter.
func (p *Provider) CreatePaymentIntent(
	ctx context.Context,
	params *payment.IntentParams,
) (*payment.IntentResult, error) {
	if params == nil || params.Reservation == nil {
		return nil, fmt.Errorf("%w: reservation is required", domain.ErrAdapterFailure)
	}
	status := payment.IntentSucceeded
	if params.Reservation.Status == presale.ReservationWaitlisted {
		status = payment.IntentProcessing
	}
	providerID := "sim_pi_" + params.TransactionID.String()
	clientSecret := providerID + "_secret"

	raw, err := json.Marshal(map[string]any{
		"id":             providerID,
		"object":         "payment_intent",
		"status":         status,
		"amount":         params.Amount().String(),
		"currency":       params.Currency(),
		"reservation_id": params.Reservation.ID.String(),
		"transaction_id": params.TransactionID.String(),
		"receipt_email":  receiptEmail(params.Buyer),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
	}

	p.logger.Debug("🧪 simulated payment intent",
		"provider_id", providerID,
		"reservation_id", params.Reservation.ID,
		"status", status,
	)
	return &payment.IntentResult{
		ProviderID:   providerID,
		Status:       status,
		ClientSecret: clientSecret,
		Raw:          raw,
	}, nil
}

// RefundPayment implements payment.Adapter.
func (p *Provider) RefundPayment(
	ctx context.Context,
	params *payment.RefundParams,
) (*payment.RefundResult, error) {
	if params == nil || params.Transaction == nil {
		return nil, fmt.Errorf("%w: transaction is required", domain.ErrAdapterFailure)
	}
	providerID := "sim_re_" + params.Transaction.ID.String()
	raw, err := json.Marshal(map[string]any{
		"id":             providerID,
		"object":         "refund",
		"status":         payment.RefundRefunded,
		"amount":         params.Amount.String(),
		"currency":       params.Currency,
		"transaction_id": params.Transaction.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
	}
	p.logger.Debug("🧪 simulated refund", "provider_id", providerID)
	return &payment.RefundResult{
		ProviderID: providerID,
		Status:     payment.RefundRefunded,
		Raw:        raw,
	}, nil
}

// VerifyWebhook implements payment.Adapter.
func (p *Provider) VerifyWebhook(
	ctx context.Context,
	payload []byte,
	headers map[string]string,
) (*payment.Event, error) {
	if p.cfg.WebhookSecret != "" {
		header := payment.HeaderValue(headers, payment.SignatureHeader)
		if err := payment.VerifySignature(payload, header, p.cfg.WebhookSecret, p.cfg.Tolerance, p.now()); err != nil {
			p.logger.Warn("rejected simulated webhook", "error", err)
			return nil, err
		}
	}
	return payment.ParseEvent(presale.ProviderSimulated, payload), nil
}

func receiptEmail(buyer *presale.User) string {
	if buyer == nil {
		return ""
	}
	return buyer.Email
}

var _ payment.Adapter = (*Provider)(nil)
