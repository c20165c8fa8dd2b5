package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/presale/infra/cache"
	"github.com/amirasaad/presale/internal/fixtures"
	"github.com/amirasaad/presale/internal/fixtures/mocks"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/domain/presale"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/amirasaad/presale/pkg/service/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (h *harness) checkedOut(round *presale.Round, slots int) (*presale.Reservation, *presale.Transaction) {
	res := h.reservation(round, slots, presale.ReservationConfirmed)
	tx := fixtures.Transaction(res, presale.ProviderSimulated, presale.TransactionSucceeded, "sim_pi_"+res.ID.String())
	res.TxID = &tx.ID
	h.store.PutReservation(res)
	h.store.PutTransaction(tx)
	return res, tx
}

func (h *harness) roundStatus(t *testing.T, round *presale.Round) presale.RoundStatus {
	t.Helper()
	got, err := h.store.GetRoundByID(context.Background(), round.ID)
	require.NoError(t, err)
	return got.Status
}

func (h *harness) reservationStatus(t *testing.T, r *presale.Reservation) presale.ReservationStatus {
	t.Helper()
	got, err := h.store.GetReservationByID(context.Background(), r.ID)
	require.NoError(t, err)
	return got.Status
}

func (h *harness) transactionStatus(t *testing.T, tx *presale.Transaction) presale.TransactionStatus {
	t.Helper()
	got, err := h.store.GetTransactionByID(context.Background(), tx.ID)
	require.NoError(t, err)
	return got.Status
}

func TestReconciliation_AllOrNothingBelowGoalRefundsEveryone(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	var reservations []*presale.Reservation
	var txs []*presale.Transaction
	for range 3 {
		r, tx := h.checkedOut(round, 2)
		reservations = append(reservations, r)
		txs = append(txs, tx)
	}

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedRounds)
	assert.Equal(t, 3, summary.Refunds)
	assert.Zero(t, summary.Assignments)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, presale.RoundNotMet, h.roundStatus(t, round))
	for i := range reservations {
		assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, reservations[i]))
		assert.Equal(t, presale.TransactionRefunded, h.transactionStatus(t, txs[i]))
	}
	assert.Len(t, h.published(events.EventTypeReservationRefunded), 3)

	finalized := h.published(events.EventTypeRoundFinalized)
	require.Len(t, finalized, 1)
	assert.Equal(t, string(presale.RoundNotMet), finalized[0].(events.RoundFinalized).Status)
}

func TestReconciliation_PartialAboveThresholdCloses(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 30).
		WithPartial(0.7).
		WithDeadline(referenceAt.Add(-time.Minute)))
	var reservations []*presale.Reservation
	for _, slots := range []int{10, 8, 4} {
		r, _ := h.checkedOut(round, slots)
		reservations = append(reservations, r)
	}

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedRounds)
	assert.Equal(t, len(reservations), summary.Assignments)
	assert.Zero(t, summary.Refunds)
	assert.Equal(t, presale.RoundClosed, h.roundStatus(t, round))
	for _, r := range reservations {
		assert.Equal(t, presale.ReservationAssigned, h.reservationStatus(t, r))
	}
	assert.Len(t, h.published(events.EventTypeReservationAssigned), 3)
}

func TestReconciliation_GoalMetFulfillsAndSettlesPending(t *testing.T) {
	h := newHarness(t, mocks.NewAdapter(t))
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalAmount, 1000).
		WithDeadline(referenceAt))
	h.checkedOut(round, 10)
	waiting := h.reservation(round, 1, presale.ReservationWaitlisted)
	pendingTx := fixtures.Transaction(waiting, presale.ProviderSimulated, presale.TransactionPending, "")
	h.store.PutTransaction(pendingTx)

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Assignments)
	assert.Equal(t, presale.RoundFulfilled, h.roundStatus(t, round))
	assert.Equal(t, presale.ReservationAssigned, h.reservationStatus(t, waiting))

	got, err := h.store.GetTransactionByID(context.Background(), pendingTx.ID)
	require.NoError(t, err)
	assert.Equal(t, presale.TransactionSucceeded, got.Status)
	assert.Equal(t, string(presale.RuleAllOrNothing), got.Metadata["reconciliation_rule"])
	assert.Equal(t, referenceAt.Format(time.RFC3339), got.Metadata["reconciled_at"])
}

func TestReconciliation_FutureRoundsAreUntouched(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).WithDeadline(referenceAt.Add(time.Second)))
	res, tx := h.checkedOut(round, 1)

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Zero(t, summary.ProcessedRounds)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, presale.RoundOpen, h.roundStatus(t, round))
	assert.Equal(t, presale.ReservationConfirmed, h.reservationStatus(t, res))
	assert.Equal(t, presale.TransactionSucceeded, h.transactionStatus(t, tx))
	adapter.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything)
}

func TestReconciliation_EmptyRoundIsSkipped(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID).WithDeadline(referenceAt.Add(-time.Hour)))

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.ProcessedRounds)
	assert.Equal(t, presale.RoundOpen, h.roundStatus(t, round))
}

func TestReconciliation_FinalRoundsAreNotReprocessed(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 100).
		WithStatus(presale.RoundNotMet).
		WithDeadline(referenceAt.Add(-48 * time.Hour)))
	res, _ := h.checkedOut(round, 1)

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Zero(t, summary.ProcessedRounds)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, presale.ReservationConfirmed, h.reservationStatus(t, res))
}

func TestReconciliation_SecondRunIsNoop(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	h.checkedOut(round, 2)

	first, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)
	require.NoError(t, err)
	require.Equal(t, 1, first.Refunds)

	second, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, second.ProcessedRounds)
	assert.Zero(t, second.Refunds)
	assert.Len(t, h.published(events.EventTypeRoundFinalized), 1)
}

func TestReconciliation_RefundFailureKeepsRoundOpen(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	failing, failingTx := h.checkedOut(round, 1)
	ok, okTx := h.checkedOut(round, 1)

	adapter.On("RefundPayment", mock.Anything, mock.MatchedBy(func(p *provider.RefundParams) bool {
		return p.Transaction.ID == failingTx.ID
	})).Return(nil, assert.AnError)
	adapter.On("RefundPayment", mock.Anything, mock.MatchedBy(func(p *provider.RefundParams) bool {
		return p.Transaction.ID == okTx.ID && p.Amount.Equal(okTx.Amount) && p.Currency == "USD"
	})).Return(&provider.RefundResult{ProviderID: "re_1", Status: provider.RefundRefunded}, nil).Once()

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Refunds)
	assert.Equal(t, presale.RoundOpen, h.roundStatus(t, round))
	assert.Equal(t, presale.ReservationConfirmed, h.reservationStatus(t, failing))
	assert.Equal(t, presale.TransactionSucceeded, h.transactionStatus(t, failingTx))
	assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, ok))
	assert.Empty(t, h.published(events.EventTypeRoundFinalized))
}

func TestReconciliation_UnconfirmedRefundLeavesTransaction(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	res, tx := h.checkedOut(round, 1)

	adapter.On("RefundPayment", mock.Anything, mock.Anything).
		Return(&provider.RefundResult{ProviderID: "re_pending", Status: provider.RefundPending}, nil).Once()

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Refunds)
	assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, res))
	got, err := h.store.GetTransactionByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, presale.TransactionSucceeded, got.Status)
	assert.Equal(t, "re_pending", got.Metadata["refund_id"])
	assert.Equal(t, presale.RoundNotMet, h.roundStatus(t, round))

	refunded := h.published(events.EventTypeReservationRefunded)
	require.Len(t, refunded, 1)
	assert.False(t, refunded[0].(events.ReservationRefunded).RefundConfirmed)
}

func TestReconciliation_RefundsEveryCapturedCharge(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	res, first := h.checkedOut(round, 1)
	second := fixtures.Transaction(res, presale.ProviderSimulated, presale.TransactionSucceeded, "sim_pi_again")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	res.TxID = &second.ID
	h.store.PutReservation(res)
	h.store.PutTransaction(second)

	for _, tx := range []*presale.Transaction{first, second} {
		id := tx.ID
		adapter.On("RefundPayment", mock.Anything, mock.MatchedBy(func(p *provider.RefundParams) bool {
			return p.Transaction.ID == id
		})).Return(&provider.RefundResult{ProviderID: "re_" + id.String(), Status: provider.RefundRefunded}, nil).Once()
	}

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Refunds)
	assert.Equal(t, presale.TransactionRefunded, h.transactionStatus(t, first))
	assert.Equal(t, presale.TransactionRefunded, h.transactionStatus(t, second))
	assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, res))
}

func TestReconciliation_RetryDoesNotRepeatRequestedRefunds(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	res, first := h.checkedOut(round, 1)
	second := fixtures.Transaction(res, presale.ProviderSimulated, presale.TransactionSucceeded, "sim_pi_again")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	h.store.PutTransaction(second)

	adapter.On("RefundPayment", mock.Anything, mock.MatchedBy(func(p *provider.RefundParams) bool {
		return p.Transaction.ID == first.ID
	})).Return(&provider.RefundResult{ProviderID: "re_pending", Status: provider.RefundPending}, nil).Once()
	adapter.On("RefundPayment", mock.Anything, mock.MatchedBy(func(p *provider.RefundParams) bool {
		return p.Transaction.ID == second.ID
	})).Return(nil, assert.AnError).Once()

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, presale.ReservationConfirmed, h.reservationStatus(t, res))

	adapter.On("RefundPayment", mock.Anything, mock.MatchedBy(func(p *provider.RefundParams) bool {
		return p.Transaction.ID == second.ID
	})).Return(&provider.RefundResult{ProviderID: "re_2", Status: provider.RefundRefunded}, nil).Once()

	summary, err = h.svc.RunNightlyReconciliation(context.Background(), referenceAt)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Refunds)
	assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, res))
	assert.Equal(t, presale.TransactionSucceeded, h.transactionStatus(t, first))
	assert.Equal(t, presale.TransactionRefunded, h.transactionStatus(t, second))
	adapter.AssertNumberOfCalls(t, "RefundPayment", 3)
}

func TestReconciliation_UnchargedTransactionsCloseLocally(t *testing.T) {
	adapter := mocks.NewAdapter(t)
	h := newHarness(t, adapter)
	round := h.round(fixtures.Round(h.project.ID).
		WithGoal(presale.GoalReservations, 10).
		WithDeadline(referenceAt.Add(-time.Hour)))
	res := h.reservation(round, 2, presale.ReservationWaitlisted)
	tx := fixtures.Transaction(res, presale.ProviderSimulated, presale.TransactionPending, "")
	h.store.PutTransaction(tx)
	bare := h.reservation(round, 1, presale.ReservationPending)

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	adapter.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything)
	assert.Equal(t, 2, summary.Refunds)
	assert.Equal(t, presale.TransactionRefunded, h.transactionStatus(t, tx))
	assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, res))
	assert.Equal(t, presale.ReservationRefunded, h.reservationStatus(t, bare))
}

func TestReconciliation_ManyRoundsInParallel(t *testing.T) {
	h := newHarness(t, newSimulated())
	var met, missed []*presale.Round
	for range 5 {
		r := h.round(fixtures.Round(h.project.ID).
			WithGoal(presale.GoalReservations, 2).
			WithDeadline(referenceAt.Add(-time.Hour)))
		h.checkedOut(r, 2)
		met = append(met, r)

		m := h.round(fixtures.Round(h.project.ID).
			WithGoal(presale.GoalReservations, 20).
			WithDeadline(referenceAt.Add(-time.Hour)))
		h.checkedOut(m, 2)
		missed = append(missed, m)
	}

	summary, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.NoError(t, err)
	assert.Equal(t, 10, summary.ProcessedRounds)
	assert.Equal(t, 5, summary.Assignments)
	assert.Equal(t, 5, summary.Refunds)
	for i := range met {
		assert.Equal(t, presale.RoundFulfilled, h.roundStatus(t, met[i]))
		assert.Equal(t, presale.RoundNotMet, h.roundStatus(t, missed[i]))
	}
}

func TestReconciliation_StorageErrorAborts(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID).WithDeadline(referenceAt.Add(-time.Hour)))
	h.checkedOut(round, 1)
	h.store.FailOn["GetReservationsByRoundID"] = assert.AnError

	_, err := h.svc.RunNightlyReconciliation(context.Background(), referenceAt)

	require.ErrorIs(t, err, assert.AnError)
}

func TestRoundProgress(t *testing.T) {
	h := newHarness(t, newSimulated())
	round := h.round(fixtures.Round(h.project.ID).WithGoal(presale.GoalReservations, 30))
	h.checkedOut(round, 10)
	h.checkedOut(round, 8)
	h.reservation(round, 5, presale.ReservationPending)

	summary, err := h.svc.RoundProgress(context.Background(), round.ID)

	require.NoError(t, err)
	assert.Equal(t, 60, summary.Percent)
	assert.Equal(t, 18, summary.ConfirmedSlots)
	assert.Equal(t, 23, summary.TotalSlots)

	_, err = h.svc.RoundProgress(context.Background(), fixtures.Round(h.project.ID).Build().ID)
	require.Error(t, err)
}

func TestRoundProgress_CachedUntilCheckout(t *testing.T) {
	h := newHarness(t, newSimulated())
	progressCache := cache.NewMemoryCache()
	t.Cleanup(func() { _ = progressCache.Close() })
	svc := payment.New(payment.Deps{
		Store:    h.store,
		Adapter:  newSimulated(),
		EventBus: h.bus,
		Logger:   discardLogger(),
	}, payment.WithProgressCache(progressCache, time.Minute))

	round := h.round(fixtures.Round(h.project.ID).WithGoal(presale.GoalReservations, 10))
	res := h.reservation(round, 5, presale.ReservationPending)

	before, err := svc.RoundProgress(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Percent)

	cached, err := progressCache.Get(context.Background(), round.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)

	_, err = svc.InitiateReservationPayment(context.Background(), res.ID)
	require.NoError(t, err)

	after, err := svc.RoundProgress(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, after.Percent)
}
