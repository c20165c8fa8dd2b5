// Package payment exposes checkout, provider webhooks, reconciliation and
// round progress over HTTP.
package payment

import (
	"context"
	"time"

	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/amirasaad/presale/pkg/progress"
	paymentsvc "github.com/amirasaad/presale/pkg/service/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Service is the part of the payment service the handlers use.
type Service interface {
	Provider() string
	InitiateReservationPayment(ctx context.Context, reservationID uuid.UUID) (*paymentsvc.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, headers map[string]string) (*presale.WebhookEvent, error)
	RunNightlyReconciliation(ctx context.Context, referenceDate time.Time) (*paymentsvc.ReconciliationSummary, error)
	RoundProgress(ctx context.Context, roundID uuid.UUID) (*progress.Summary, error)
}

// Routes registers the payment endpoints. An empty reconcileToken leaves
// the reconciliation trigger open.
func Routes(app *fiber.App, svc Service, reconcileToken string) {
	app.Post("/checkout", Checkout(svc))
	app.Post("/webhooks/payments", Webhook(svc))
	app.Post("/reconciliation/run", RunReconciliation(svc, reconcileToken))
	app.Get("/rounds/:id/progress", RoundProgress(svc))
}
