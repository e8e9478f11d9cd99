package order

import (
	"context"
	"fmt"

	"monopay-be/internal/logger"
	"monopay-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Processor is the host side of a payment: it owns orders and payment records
// and is told by payment adapters when money arrived.
type Processor interface {
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	// CreatePayment opens a payment for the order. A zero or out of range
	// amount means "the unpaid remainder".
	CreatePayment(ctx context.Context, o *Order, amount decimal.Decimal) (*Payment, error)
	LoadPaymentByHash(ctx context.Context, hash string) (*Payment, error)
	AttachInvoice(ctx context.Context, p *Payment, invoiceID string) error
	// ProcessPayment records a confirmed payment. Repeated calls are no-ops.
	ProcessPayment(ctx context.Context, p *Payment, amount decimal.Decimal) error
}

type processor struct {
	repo    Repository
	newHash func() string
}

func NewProcessor(repo Repository) Processor {
	return &processor{repo: repo, newHash: utils.NewPaymentHash}
}

func (s *processor) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetOrder(ctx, orderID)
}

func (s *processor) CreatePayment(ctx context.Context, o *Order, amount decimal.Decimal) (*Payment, error) {
	switch o.Status {
	case StatusPaid:
		return nil, ErrOrderAlreadyPaid
	case StatusCanceled:
		return nil, ErrOrderNotPayable
	}

	remaining := o.Remaining()
	if !remaining.IsPositive() {
		return nil, ErrOrderAlreadyPaid
	}
	if !amount.IsPositive() || amount.GreaterThan(remaining) {
		amount = remaining
	}

	p := &Payment{
		OrderID: o.ID,
		Hash:    s.newHash(),
		Amount:  amount.Round(2),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	logger.FromCtx(ctx).Info("Payment created",
		zap.Uint("order_id", o.ID),
		zap.Uint("payment_id", p.ID),
		zap.String("payment_hash", p.Hash),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	return p, nil
}

func (s *processor) LoadPaymentByHash(ctx context.Context, hash string) (*Payment, error) {
	if !utils.IsPaymentHash(hash) {
		return nil, ErrInvalidPaymentRef
	}
	return s.repo.GetPaymentByHash(ctx, hash)
}

func (s *processor) AttachInvoice(ctx context.Context, p *Payment, invoiceID string) error {
	if err := s.repo.SetPaymentInvoice(ctx, p.ID, invoiceID); err != nil {
		return err
	}
	p.InvoiceID = invoiceID
	return nil
}

func (s *processor) ProcessPayment(ctx context.Context, p *Payment, amount decimal.Decimal) error {
	log := logger.FromCtx(ctx).With(
		zap.Uint("order_id", p.OrderID),
		zap.Uint("payment_id", p.ID),
		zap.String("amount", amount.StringFixed(2)),
	)

	if p.Paid {
		log.Info("Payment already processed")
		return nil
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	updated, err := s.repo.MarkPaymentPaid(ctx, p.ID, p.OrderID, amount)
	if err != nil {
		log.Error("Failed to mark payment as paid", zap.Error(err))
		return err
	}
	if !updated {
		log.Info("Payment already processed")
	} else {
		log.Info("Payment processed")
	}

	p.Paid = true
	p.ReceivedAmount = amount
	return nil
}
