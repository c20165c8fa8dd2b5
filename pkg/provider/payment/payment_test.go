package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	txID := uuid.New()
	body := []byte(`{"id":"evt_1","status":"Succeeded","transaction_id":"` + txID.String() + `","externalId":"sim_pi_1"}`)

	evt := payment.ParseEvent("simulated", body)

	require.NotNil(t, evt)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, payment.EventSucceeded, evt.Status)
	assert.Equal(t, "payment.succeeded", evt.Type)
	assert.Equal(t, "sim_pi_1", evt.ExternalID)
	require.NotNil(t, evt.TransactionID)
	assert.Equal(t, txID, *evt.TransactionID)
	assert.Nil(t, evt.ReservationID)
	assert.Equal(t, body, evt.Payload)
}

func TestParseEvent_Unrecognized(t *testing.T) {
	for name, body := range map[string]string{
		"not json":       `hello`,
		"missing id":     `{"status":"succeeded"}`,
		"missing status": `{"id":"evt_1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, payment.ParseEvent("simulated", []byte(body)))
		})
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Unix(1_700_000_000, 0)

	t.Run("valid", func(t *testing.T) {
		header := payment.SignHeader(now, payload, secret)
		assert.NoError(t, payment.VerifySignature(payload, header, secret, 5*time.Minute, now))
	})

	t.Run("any v1 may match", func(t *testing.T) {
		header := "t=1700000000,v1=deadbeef,v1=" + payment.ComputeSignature(now, payload, secret)
		assert.NoError(t, payment.VerifySignature(payload, header, secret, 0, now))
	})

	t.Run("tampered body", func(t *testing.T) {
		header := payment.SignHeader(now, payload, secret)
		err := payment.VerifySignature([]byte(`{"id":"evt_2"}`), header, secret, 0, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := payment.SignHeader(now, payload, "other")
		err := payment.VerifySignature(payload, header, secret, 0, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := payment.SignHeader(now.Add(-time.Hour), payload, secret)
		err := payment.VerifySignature(payload, header, secret, 5*time.Minute, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		err := payment.VerifySignature(payload, "", secret, 0, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("malformed header", func(t *testing.T) {
		err := payment.VerifySignature(payload, "v1=abc", secret, 0, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})
}

func TestHeaderValue(t *testing.T) {
	headers := map[string]string{"Stripe-Signature": "t=1,v1=a"}
	assert.Equal(t, "t=1,v1=a", payment.HeaderValue(headers, "stripe-signature"))
	assert.Empty(t, payment.HeaderValue(headers, "Signature"))
}

type deadlineAdapter struct {
	sawDeadline bool
}

func (d *deadlineAdapter) Name() string { return "deadline" }

func (d *deadlineAdapter) CreatePaymentIntent(ctx context.Context, _ *payment.IntentParams) (*payment.IntentResult, error) {
	_, d.sawDeadline = ctx.Deadline()
	return &payment.IntentResult{}, nil
}

func (d *deadlineAdapter) RefundPayment(ctx context.Context, _ *payment.RefundParams) (*payment.RefundResult, error) {
	_, d.sawDeadline = ctx.Deadline()
	return &payment.RefundResult{}, nil
}

func (d *deadlineAdapter) VerifyWebhook(context.Context, []byte, map[string]string) (*payment.Event, error) {
	return nil, nil
}

func TestWithTimeout(t *testing.T) {
	inner := &deadlineAdapter{}
	assert.Same(t, payment.Adapter(inner), payment.WithTimeout(inner, 0))

	wrapped := payment.WithTimeout(inner, time.Second)
	assert.Equal(t, "deadline", wrapped.Name())

	_, err := wrapped.CreatePaymentIntent(context.Background(), &payment.IntentParams{})
	require.NoError(t, err)
	assert.True(t, inner.sawDeadline)

	inner.sawDeadline = false
	_, err = wrapped.RefundPayment(context.Background(), &payment.RefundParams{})
	require.NoError(t, err)
	assert.True(t, inner.sawDeadline)
}
