package payment_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/presale/infra/eventbus"
	"github.com/amirasaad/presale/infra/provider/simulated"
	"github.com/amirasaad/presale/internal/fixtures"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/domain/presale"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/amirasaad/presale/pkg/service/payment"
)

const webhookSecret = "whsec_test"

var referenceAt = time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)

type harness struct {
	store   *fixtures.Store
	bus     *eventbus.MemoryEventBus
	svc     *payment.Service
	project *presale.Project
	user    *presale.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSimulated() *simulated.Provider {
	return simulated.New(simulated.Config{WebhookSecret: webhookSecret}, discardLogger())
}

func newHarness(t *testing.T, adapter provider.Adapter) *harness {
	t.Helper()
	h := &harness{
		store:   fixtures.NewStore(),
		bus:     eventbus.NewWithMemory(discardLogger(), eventbus.WithRecording()),
		project: fixtures.Project(),
		user:    fixtures.User(),
	}
	h.store.PutProject(h.project)
	h.store.PutUser(h.user)
	h.svc = payment.New(payment.Deps{
		Store:    h.store,
		Adapter:  adapter,
		EventBus: h.bus,
		Logger:   discardLogger(),
	}, payment.WithConcurrency(2))
	return h
}

func (h *harness) round(b *fixtures.RoundBuilder) *presale.Round {
	r := b.Build()
	h.store.PutRound(r)
	return r
}

func (h *harness) reservation(round *presale.Round, slots int, status presale.ReservationStatus) *presale.Reservation {
	r := fixtures.Reservation(round, h.user.ID, slots, status)
	h.store.PutReservation(r)
	return r
}

func (h *harness) published(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range h.bus.Published() {
		if e.Type() == eventType.String() {
			out = append(out, e)
		}
	}
	return out
}

func signedHeaders(payload []byte) map[string]string {
	return map[string]string{
		provider.SignatureHeader: provider.SignHeader(time.Now(), payload, webhookSecret),
	}
}
