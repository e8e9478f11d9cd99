package payment

import (
	"context"
	"errors"

	"monopay-be/internal/logger"
	"monopay-be/internal/metrics"
	"monopay-be/internal/order"
	"monopay-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LinkService turns an order into a hosted payment page URL.
type LinkService interface {
	PaymentLink(ctx context.Context, orderID uint, amount decimal.Decimal) (string, error)
}

type linkService struct {
	orders   order.Processor
	gateway  Gateway
	settings Settings
}

func NewLinkService(orders order.Processor, gateway Gateway, settings Settings) LinkService {
	return &linkService{orders: orders, gateway: gateway, settings: settings}
}

func (s *linkService) PaymentLink(ctx context.Context, orderID uint, amount decimal.Decimal) (url string, err error) {
	defer func() {
		metrics.PaymentLinkTotal.WithLabelValues(linkResult(err)).Inc()
	}()

	if !s.gateway.Configured() {
		return "", ErrEmptyClientCredentials
	}

	ctx = logger.WithFields(ctx, zap.Uint("order_id", orderID))
	log := logger.FromCtx(ctx)

	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !canPay(ctx, o) {
		log.Warn("Payment link requested for another user's order")
		return "", order.ErrOrderNotFound
	}

	p, err := s.orders.CreatePayment(ctx, o, amount)
	if err != nil {
		return "", err
	}

	req, err := BuildInvoiceRequest(o, p, s.settings)
	if err != nil {
		log.Error("Failed to build invoice request", zap.Error(err))
		return "", err
	}

	res, err := s.gateway.CreateInvoice(ctx, req)
	if err != nil {
		return "", err
	}

	if err := s.orders.AttachInvoice(ctx, p, res.InvoiceID); err != nil {
		// the webhook still resolves the payment by hash
		log.Warn("Failed to store invoice id", zap.String("invoice_id", res.InvoiceID), zap.Error(err))
	}

	return res.PageURL, nil
}

// canPay reports whether the caller owns the order. Admins may pay any order.
func canPay(ctx context.Context, o *order.Order) bool {
	if utils.GetUserRoleFromContext(ctx) == utils.RoleAdmin {
		return true
	}
	uid, ok := utils.GetUserIDFromContext(ctx)
	return ok && uid == o.UserID
}

func linkResult(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyClientCredentials):
		return "not_configured"
	case errors.Is(err, ErrMissingPageURL), errors.As(err, &apiErr):
		return "provider_error"
	default:
		return "error"
	}
}
