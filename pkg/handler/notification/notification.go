// Package notification turns payment events into buyer-facing notices.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/eventbus"
	"github.com/google/uuid"
)

// Kind classifies a notice.
type Kind string

const (
	KindReceipt    Kind = "receipt"
	KindAssignment Kind = "assignment"
	KindRefund     Kind = "refund"
)

// Notice is a message addressed to a buyer.
type Notice struct {
	Kind    Kind
	UserID  uuid.UUID
	Email   string
	Subject string
	Body    string
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// LogNotifier writes notices to the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, n Notice) error {
	l.logger.Info("✉️ notice",
		"kind", n.Kind,
		"user_id", n.UserID,
		"email", n.Email,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}

// KeyOf identifies the notice an event produces, so redelivered events can
// be skipped. Events that produce no notice have an empty key.
func KeyOf(e events.Event) string {
	switch evt := e.(type) {
	case events.PaymentInitiated:
		return fmt.Sprintf("%s:%s", KindReceipt, evt.TransactionID)
	case events.ReservationAssigned:
		return fmt.Sprintf("%s:%s", KindAssignment, evt.ReservationID)
	case events.ReservationRefunded:
		return fmt.Sprintf("%s:%s:%t", KindRefund, evt.ReservationID, evt.RefundConfirmed)
	default:
		return ""
	}
}

// HandlePaymentInitiated sends a receipt hint when the buyer has an e-mail.
func HandlePaymentInitiated(n Notifier, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With("handler", "notification.HandlePaymentInitiated", "event_type", e.Type())
		evt, ok := e.(events.PaymentInitiated)
		if !ok {
			log.Error("Skipping unexpected event type", "event", e)
			return nil
		}
		if evt.BuyerEmail == "" {
			log.Debug("no buyer e-mail, skipping receipt", "transaction_id", evt.TransactionID)
			return nil
		}
		return n.Notify(ctx, Notice{
			Kind:    KindReceipt,
			UserID:  evt.UserID,
			Email:   evt.BuyerEmail,
			Subject: "Payment received",
			Body: fmt.Sprintf(
				"We registered your payment of %s %s (status %s).",
				evt.Amount, evt.Currency, evt.TransactionStatus,
			),
		})
	}
}

// HandleReservationAssigned tells the buyer their slots were allocated.
func HandleReservationAssigned(n Notifier, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.ReservationAssigned)
		if !ok {
			logger.Error("Skipping unexpected event type",
				"handler", "notification.HandleReservationAssigned",
				"event", e,
			)
			return nil
		}
		return n.Notify(ctx, Notice{
			Kind:    KindAssignment,
			UserID:  evt.UserID,
			Subject: "Your allocation is confirmed",
			Body:    fmt.Sprintf("%d slot(s) of round %s were assigned to you.", evt.Slots, evt.RoundID),
		})
	}
}

// HandleReservationRefunded tells the buyer about a refund. Unconfirmed
// refunds get a separate "in progress" notice.
func HandleReservationRefunded(n Notifier, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.ReservationRefunded)
		if !ok {
			logger.Error("Skipping unexpected event type",
				"handler", "notification.HandleReservationRefunded",
				"event", e,
			)
			return nil
		}
		notice := Notice{
			Kind:    KindRefund,
			UserID:  evt.UserID,
			Subject: "Your deposit was refunded",
			Body:    fmt.Sprintf("Round %s did not reach its goal; your deposit was returned.", evt.RoundID),
		}
		if !evt.RefundConfirmed {
			notice.Subject = "Your refund is on its way"
			notice.Body = fmt.Sprintf("Round %s did not reach its goal; your refund is being processed.", evt.RoundID)
		}
		return n.Notify(ctx, notice)
	}
}

// HandleRoundFinalized logs the outcome of a reconciled round.
func HandleRoundFinalized(logger *slog.Logger) eventbus.HandlerFunc {
	return func(_ context.Context, e events.Event) error {
		evt, ok := e.(events.RoundFinalized)
		if !ok {
			logger.Error("Skipping unexpected event type",
				"handler", "notification.HandleRoundFinalized",
				"event", e,
			)
			return nil
		}
		logger.Info("🏁 round finalized",
			"round_id", evt.RoundID,
			"project_id", evt.ProjectID,
			"status", evt.Status,
			"percent", evt.Percent,
			"assignments", evt.Assignments,
			"refunds", evt.Refunds,
		)
		return nil
	}
}
