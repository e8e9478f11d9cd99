package payment

import (
	"context"

	"monopay-be/internal/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) GetOrder(ctx context.Context, orderID uint) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockProcessor) CreatePayment(ctx context.Context, o *order.Order, amount decimal.Decimal) (*order.Payment, error) {
	args := m.Called(ctx, o, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Payment), args.Error(1)
}

func (m *MockProcessor) LoadPaymentByHash(ctx context.Context, hash string) (*order.Payment, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Payment), args.Error(1)
}

func (m *MockProcessor) AttachInvoice(ctx context.Context, p *order.Payment, invoiceID string) error {
	args := m.Called(ctx, p, invoiceID)
	return args.Error(0)
}

func (m *MockProcessor) ProcessPayment(ctx context.Context, p *order.Payment, amount decimal.Decimal) error {
	args := m.Called(ctx, p, amount)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InvoiceResponse), args.Error(1)
}

func (m *MockGateway) GetInvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceStatus, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InvoiceStatus), args.Error(1)
}

func (m *MockGateway) VerifySignature(ctx context.Context, body []byte, signature string) error {
	args := m.Called(ctx, body, signature)
	return args.Error(0)
}

func (m *MockGateway) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) PaymentLink(ctx context.Context, orderID uint, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, orderID, amount)
	return args.String(0), args.Error(1)
}
