// Package mocks holds testify mocks for the presale interfaces.
package mocks

import (
	"context"

	"github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/stretchr/testify/mock"
)

// Adapter is a mock payment.Adapter.
type Adapter struct {
	mock.Mock
}

// NewAdapter creates a mock adapter named "mock" and registers a cleanup
// that asserts the expectations.
func NewAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *Adapter {
	m := &Adapter{}
	m.Mock.Test(t)
	m.On("Name").Return("mock").Maybe()
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Adapter) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Adapter) CreatePaymentIntent(ctx context.Context, params *payment.IntentParams) (*payment.IntentResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentResult), args.Error(1)
}

func (m *Adapter) RefundPayment(ctx context.Context, params *payment.RefundParams) (*payment.RefundResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}

func (m *Adapter) VerifyWebhook(ctx context.Context, payload []byte, headers map[string]string) (*payment.Event, error) {
	args := m.Called(ctx, payload, headers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

var _ payment.Adapter = (*Adapter)(nil)
