package payment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirasaad/presale/internal/fixtures"
	"github.com/amirasaad/presale/internal/fixtures/mocks"
	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/domain/presale"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInitiateReservationPayment_Succeeded(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID))
	res := h.reservation(round, 2, presale.ReservationPending)

	out, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.NoError(t, err)
	assert.Equal(t, presale.TransactionSucceeded, out.Transaction.Status)
	assert.Equal(t, presale.ReservationConfirmed, out.Reservation.Status)
	require.NotNil(t, out.Reservation.TxID)
	assert.Equal(t, out.Transaction.ID, *out.Reservation.TxID)
	assert.Equal(t, "USD", out.Transaction.Currency)
	assert.True(t, out.Transaction.Amount.Equal(res.Amount))
	assert.True(t, out.Transaction.HasExternalID())
	assert.NotEmpty(t, out.Transaction.RawResponse)
	assert.NotEmpty(t, out.ClientSecret)
	assert.Empty(t, out.NextAction)

	stored := h.store.Transactions()
	require.Len(t, stored, 1)
	assert.Equal(t, presale.TransactionSucceeded, stored[0].Status)

	published := h.published(events.EventTypePaymentInitiated)
	require.Len(t, published, 1)
	evt := published[0].(events.PaymentInitiated)
	assert.Equal(t, h.user.Email, evt.BuyerEmail)
	assert.Equal(t, string(presale.ReservationConfirmed), evt.ReservationStatus)
}

func TestInitiateReservationPayment_RequiresAction(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID))
	res := h.reservation(round, 1, presale.ReservationPending)

	adapter.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(p *provider.IntentParams) bool {
		return p.Reservation.ID == res.ID && p.Round.ID == round.ID && p.Buyer != nil
	})).Return(&provider.IntentResult{
		ProviderID:   "pi_123",
		Status:       provider.IntentRequiresAction,
		ClientSecret: "pi_123_secret",
		Raw:          []byte(`{"id":"pi_123"}`),
	}, nil).Once()

	out, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.NoError(t, err)
	assert.Equal(t, presale.TransactionPending, out.Transaction.Status)
	assert.Equal(t, presale.ReservationPending, out.Reservation.Status)
	assert.Equal(t, "pi_123_secret", out.ClientSecret)
	assert.Equal(t, "requires_action", out.NextAction)
	assert.Equal(t, "pi_123", *out.Transaction.ExternalID)
	assert.Equal(t, "mock", out.Transaction.Provider)
	assert.JSONEq(t, `{"id":"pi_123"}`, string(out.Transaction.RawResponse))
}

func TestInitiateReservationPayment_WaitlistedIsNeverCharged(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID))
	res := h.reservation(round, 3, presale.ReservationWaitlisted)

	out, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.NoError(t, err)
	adapter.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
	assert.Equal(t, presale.TransactionPending, out.Transaction.Status)
	assert.False(t, out.Transaction.HasExternalID())
	assert.Equal(t, presale.ReservationWaitlisted, out.Reservation.Status)
	assert.Empty(t, out.NextAction)
	assert.Len(t, h.store.Transactions(), 1)
}

func TestInitiateReservationPayment_TerminalReservations(t *testing.T) {
	for _, status := range []presale.ReservationStatus{presale.ReservationAssigned, presale.ReservationRefunded} {
		t.Run(string(status), func(t *testing.T) {
			adapter := mocks.NewAdapter(t)
			h := newHarness(t, adapter)
			round := h.round(fixtures.Round(h.project.ID))
			res := h.reservation(round, 1, status)

			out, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

			require.ErrorIs(t, err, domain.ErrInvalidState)
			assert.Nil(t, out)
			assert.Empty(t, h.store.Transactions())
			stored, _ := h.store.GetReservationByID(context.Background(), res.ID)
			assert.Equal(t, status, stored.Status)
			assert.Empty(t, h.bus.Published())
		})
	}
}

func TestInitiateReservationPayment_NotFound(t *testing.T) {
	h := newHarness(t, mocks.NewAdapter(t))

	_, err := h.svc.InitiateReservationPayment(context.Background(), uuid.New())

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInitiateReservationPayment_MissingRound(t *testing.T) {
	h := newHarness(t, mocks.NewAdapter(t))
	round := fixtures.Round(h.project.ID).Build()
	res := h.reservation(round, 1, presale.ReservationPending)

	_, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInitiateReservationPayment_AdapterFailure(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID))
	res := h.reservation(round, 1, presale.ReservationPending)

	adapter.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(nil, errors.New("card declined")).Once()

	_, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.ErrorIs(t, err, domain.ErrAdapterFailure)
	assert.Contains(t, err.Error(), "card declined")
	assert.Empty(t, h.store.Transactions())
	stored, _ := h.store.GetReservationByID(context.Background(), res.ID)
	assert.Equal(t, presale.ReservationPending, stored.Status)
	assert.Nil(t, stored.TxID)
}

func TestInitiateReservationPayment_BuyerLookupIsBestEffort(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID))
	res := h.reservation(round, 1, presale.ReservationPending)
	h.store.FailOn["GetUserByID"] = assert.AnError

	adapter.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(p *provider.IntentParams) bool {
		return p.Buyer == nil
	})).Return(&provider.IntentResult{ProviderID: "pi_1", Status: provider.IntentProcessing}, nil).Once()

	out, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.NoError(t, err)
	assert.Equal(t, "processing", out.NextAction)
	published := h.published(events.EventTypePaymentInitiated)
	require.Len(t, published, 1)
	assert.Empty(t, published[0].(events.PaymentInitiated).BuyerEmail)
}

func TestInitiateReservationPayment_StorageFailure(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID))
	res := h.reservation(round, 1, presale.ReservationPending)
	h.store.FailOn["CreateTransaction"] = assert.AnError

	_, err := h.svc.InitiateReservationPayment(context.Background(), res.ID)

	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, h.bus.Published())
}
