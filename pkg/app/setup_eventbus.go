// Package app wires the payment service to its collaborators and registers
// the event handlers on the bus.
package app

import (
	"log/slog"

	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/eventbus"
	handlercommon "github.com/amirasaad/presale/pkg/handler/common"
	"github.com/amirasaad/presale/pkg/handler/notification"
)

// setupEventBus registers all event handlers with the provided event Bus.
func (a *App) setupEventBus() {
	a.setupNotificationHandlers(a.Deps.EventBus, a.Deps.Notifier, a.Deps.Logger)
}

func (a *App) setupNotificationHandlers(
	bus eventbus.Bus,
	notifier notification.Notifier,
	logger *slog.Logger,
) {
	tracker := handlercommon.NewIdempotencyTracker()
	once := func(h eventbus.HandlerFunc, name string) eventbus.HandlerFunc {
		return handlercommon.WithIdempotency(h, tracker, notification.KeyOf, name, logger)
	}

	bus.Register(
		events.EventTypePaymentInitiated.String(),
		once(
			notification.HandlePaymentInitiated(notifier, logger),
			"HandlePaymentInitiated",
		),
	)
	bus.Register(
		events.EventTypeReservationAssigned.String(),
		once(
			notification.HandleReservationAssigned(notifier, logger),
			"HandleReservationAssigned",
		),
	)
	bus.Register(
		events.EventTypeReservationRefunded.String(),
		once(
			notification.HandleReservationRefunded(notifier, logger),
			"HandleReservationRefunded",
		),
	)
	bus.Register(
		events.EventTypeRoundFinalized.String(),
		notification.HandleRoundFinalized(logger),
	)
}
