package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	notices []Notice
	err     error
}

func (r *recorder) Notify(_ context.Context, n Notice) error {
	if r.err != nil {
		return r.err
	}
	r.notices = append(r.notices, n)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandlePaymentInitiated(t *testing.T) {
	ctx := context.Background()

	t.Run("sends receipt when buyer e-mail is known", func(t *testing.T) {
		rec := &recorder{}
		h := HandlePaymentInitiated(rec, testLogger())
		userID := uuid.New()

		err := h(ctx, events.PaymentInitiated{
			TransactionID:     uuid.New(),
			UserID:            userID,
			BuyerEmail:        "buyer@example.com",
			Amount:            "300",
			Currency:          "USD",
			TransactionStatus: "succeeded",
		})

		require.NoError(t, err)
		require.Len(t, rec.notices, 1)
		assert.Equal(t, KindReceipt, rec.notices[0].Kind)
		assert.Equal(t, userID, rec.notices[0].UserID)
		assert.Equal(t, "buyer@example.com", rec.notices[0].Email)
		assert.Contains(t, rec.notices[0].Body, "300 USD")
	})

	t.Run("skips receipt without e-mail", func(t *testing.T) {
		rec := &recorder{}
		h := HandlePaymentInitiated(rec, testLogger())

		require.NoError(t, h(ctx, events.PaymentInitiated{TransactionID: uuid.New()}))
		assert.Empty(t, rec.notices)
	})

	t.Run("ignores other events", func(t *testing.T) {
		rec := &recorder{}
		h := HandlePaymentInitiated(rec, testLogger())

		require.NoError(t, h(ctx, events.RoundFinalized{}))
		assert.Empty(t, rec.notices)
	})

	t.Run("propagates notifier errors", func(t *testing.T) {
		rec := &recorder{err: errors.New("smtp down")}
		h := HandlePaymentInitiated(rec, testLogger())

		err := h(ctx, events.PaymentInitiated{BuyerEmail: "buyer@example.com"})
		assert.EqualError(t, err, "smtp down")
	})
}

func TestHandleReservationAssigned(t *testing.T) {
	rec := &recorder{}
	h := HandleReservationAssigned(rec, testLogger())

	require.NoError(t, h(context.Background(), events.ReservationAssigned{
		ReservationID: uuid.New(),
		RoundID:       uuid.New(),
		UserID:        uuid.New(),
		Slots:         3,
	}))
	require.Len(t, rec.notices, 1)
	assert.Equal(t, KindAssignment, rec.notices[0].Kind)
	assert.Contains(t, rec.notices[0].Body, "3 slot(s)")
}

func TestHandleReservationRefunded(t *testing.T) {
	tests := []struct {
		name      string
		confirmed bool
		subject   string
	}{
		{name: "confirmed refund", confirmed: true, subject: "Your deposit was refunded"},
		{name: "pending refund", confirmed: false, subject: "Your refund is on its way"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			h := HandleReservationRefunded(rec, testLogger())

			require.NoError(t, h(context.Background(), events.ReservationRefunded{
				ReservationID:   uuid.New(),
				RefundConfirmed: tt.confirmed,
			}))
			require.Len(t, rec.notices, 1)
			assert.Equal(t, KindRefund, rec.notices[0].Kind)
			assert.Equal(t, tt.subject, rec.notices[0].Subject)
		})
	}
}

func TestHandleRoundFinalized(t *testing.T) {
	h := HandleRoundFinalized(testLogger())
	assert.NoError(t, h(context.Background(), events.RoundFinalized{RoundID: uuid.New(), Status: "not_met"}))
	assert.NoError(t, h(context.Background(), events.PaymentInitiated{}))
}

func TestKeyOf(t *testing.T) {
	resID := uuid.New()
	txID := uuid.New()

	assert.Equal(t, "receipt:"+txID.String(), KeyOf(events.PaymentInitiated{TransactionID: txID}))
	assert.Equal(t, "assignment:"+resID.String(), KeyOf(events.ReservationAssigned{ReservationID: resID}))
	assert.NotEqual(t,
		KeyOf(events.ReservationRefunded{ReservationID: resID, RefundConfirmed: false}),
		KeyOf(events.ReservationRefunded{ReservationID: resID, RefundConfirmed: true}),
	)
	assert.Empty(t, KeyOf(events.RoundFinalized{}))
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(testLogger())
	assert.NoError(t, n.Notify(context.Background(), Notice{Kind: KindReceipt}))
}
