package payment

import (
	"context"
	"time"
)

// timeoutAdapter bounds every network-facing call of the wrapped adapter.
type timeoutAdapter struct {
	Adapter
	timeout time.Duration
}

// WithTimeout wraps a so that each call runs under a deadline of d.
// A non-positive d returns a unchanged.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return &timeoutAdapter{Adapter: a, timeout: d}
}

func (t *timeoutAdapter) CreatePaymentIntent(ctx context.Context, params *IntentParams) (*IntentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Adapter.CreatePaymentIntent(ctx, params)
}

func (t *timeoutAdapter) RefundPayment(ctx context.Context, params *RefundParams) (*RefundResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Adapter.RefundPayment(ctx, params)
}
