package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"monopay-be/internal/logger"
	"monopay-be/internal/metrics"
	"monopay-be/internal/order"
	"monopay-be/internal/payment"
	"monopay-be/internal/utils"

	"go.uber.org/zap"
)

const (
	SignatureHeader = "X-Sign"
	maxBodySize     = 1 << 20
	defaultLockTTL  = 30 * time.Second
)

// Outcome is the decision reported for one notification.
type Outcome string

const (
	OutcomePaid     Outcome = "paid"
	OutcomeUnpaid   Outcome = "unpaid"
	OutcomeRejected Outcome = "rejected"
	// OutcomeRetry asks the provider to deliver the notification again.
	OutcomeRetry Outcome = "retry"
)

// Locker serialises notifications for the same payment.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

type Config struct {
	Settings        payment.Settings
	VerifySignature bool
	// Debug logs every inbound body.
	Debug bool
	// Locker may be nil; notifications are then processed without locking.
	Locker  Locker
	LockTTL time.Duration
}

type Handler struct {
	Orders  order.Processor
	Gateway payment.Gateway
	Repo    payment.Repository
	cfg     Config
}

func NewWebhookHandler(orders order.Processor, gateway payment.Gateway, repo payment.Repository, cfg Config) *Handler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &Handler{
		Orders:  orders,
		Gateway: gateway,
		Repo:    repo,
		cfg:     cfg,
	}
}

// PaymentProcessHandler serves the URL given to the provider both as
// redirectUrl and webHookUrl. A bodiless request is the customer coming back
// from the payment page; anything else is a notification.
func (h *Handler) PaymentProcessHandler(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("paymentHash")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(bytes.TrimSpace(body)) == 0 {
		h.redirectCustomer(w, r, hash)
		return
	}

	switch h.HandleNotification(r.Context(), hash, body, r.Header.Get(SignatureHeader)) {
	case OutcomeRejected:
		http.Error(w, "rejected", http.StatusBadRequest)
		return
	case OutcomeRetry:
		http.Error(w, "retry later", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (h *Handler) redirectCustomer(w http.ResponseWriter, r *http.Request, hash string) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("payment_hash", hash))

	if !utils.IsPaymentHash(hash) {
		http.Error(w, "invalid payment reference", http.StatusBadRequest)
		return
	}

	p, err := h.Orders.LoadPaymentByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, order.ErrPaymentNotFound) {
			log.Warn("Customer returned with unknown payment")
			http.Error(w, "payment not found", http.StatusNotFound)
			return
		}
		log.Error("Failed to load payment for redirect", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	path := payment.FailedPath
	if p.Paid {
		path = payment.SuccessPath
	}
	http.Redirect(w, r, h.cfg.Settings.PageURL(path, hash), http.StatusFound)
}

// HandleNotification validates a provider notification for the payment
// identified by hash and, when the provider confirms success, records the
// money with the order processor. The body only points at the invoice; the
// status and amount always come from the provider.
func (h *Handler) HandleNotification(ctx context.Context, hash string, body []byte, signature string) (outcome Outcome) {
	ctx = logger.WithFields(ctx, zap.String("payment_hash", hash))
	log := logger.FromCtx(ctx)

	defer func() {
		metrics.PaymentWebhookTotal.WithLabelValues(string(outcome)).Inc()
	}()

	if h.cfg.Debug {
		log.Debug("Monobank notification received", zap.ByteString("body", body))
	}

	if !utils.IsPaymentHash(hash) {
		log.Warn("Notification with invalid payment reference")
		return OutcomeRejected
	}

	signatureValid := false
	if h.cfg.VerifySignature {
		if err := h.Gateway.VerifySignature(ctx, body, signature); err != nil {
			log.Warn("Notification signature rejected", zap.Error(err))
			return OutcomeRejected
		}
		signatureValid = true
	}

	var notice payment.InvoiceStatus
	if err := json.Unmarshal(body, &notice); err != nil || notice.InvoiceID == "" {
		log.Warn("Notification body is not a Monobank invoice", zap.Error(err))
		return OutcomeRejected
	}

	ctx = logger.WithFields(ctx, zap.String("invoice_id", notice.InvoiceID))

	if h.cfg.Locker == nil {
		return h.process(ctx, hash, body, signatureValid, &notice)
	}

	outcome = OutcomeRetry
	err := h.cfg.Locker.WithLock(ctx, "payment:"+hash, h.cfg.LockTTL, func(ctx context.Context) error {
		outcome = h.process(ctx, hash, body, signatureValid, &notice)
		return nil
	})
	if err != nil {
		logger.FromCtx(ctx).Error("Failed to acquire payment lock", zap.Error(err))
		return OutcomeRetry
	}
	return outcome
}

func (h *Handler) process(ctx context.Context, hash string, body []byte, signatureValid bool, notice *payment.InvoiceStatus) Outcome {
	log := logger.FromCtx(ctx)

	webhookID, duplicate, err := h.Repo.SavePaymentWebhook(
		ctx,
		payment.ProviderMonobank,
		notice.EventID(),
		notice.Status,
		notice.InvoiceID,
		body,
		signatureValid,
	)
	if err != nil {
		// journaling is best effort, the payment is still processed
		log.Error("Failed to journal notification", zap.Error(err))
	}
	if duplicate {
		log.Info("Duplicate notification", zap.String("event_id", notice.EventID()))
		if h.alreadyPaid(ctx, hash) {
			return OutcomePaid
		}
	}

	status, err := h.Gateway.GetInvoiceStatus(ctx, notice.InvoiceID)
	if err != nil {
		h.fail(ctx, webhookID, "status request failed: "+err.Error())
		return OutcomeRetry
	}

	if !status.IsSuccess() {
		log.Info("Invoice is not paid",
			zap.String("status", status.Status),
			zap.String("failure_reason", status.FailureReason),
		)
		h.done(ctx, webhookID)
		return OutcomeUnpaid
	}

	p, err := h.Orders.LoadPaymentByHash(ctx, hash)
	if err != nil {
		h.fail(ctx, webhookID, "payment lookup failed: "+err.Error())
		if errors.Is(err, order.ErrPaymentNotFound) {
			return OutcomeUnpaid
		}
		return OutcomeRetry
	}

	if p.InvoiceID != "" && p.InvoiceID != status.InvoiceID {
		h.fail(ctx, webhookID, fmt.Sprintf("invoice mismatch: payment has %s", p.InvoiceID))
		return OutcomeUnpaid
	}
	if !referencesOrder(status.Reference, p.OrderID) {
		h.fail(ctx, webhookID, fmt.Sprintf("reference mismatch: %q is not order %d", status.Reference, p.OrderID))
		return OutcomeUnpaid
	}

	amount := payment.FromMinorUnits(status.Amount)
	if err := h.Orders.ProcessPayment(ctx, p, amount); err != nil {
		h.fail(ctx, webhookID, "process payment failed: "+err.Error())
		if errors.Is(err, order.ErrInvalidAmount) {
			return OutcomeUnpaid
		}
		return OutcomeRetry
	}

	log.Info("Payment confirmed",
		zap.Uint("payment_id", p.ID),
		zap.Uint("order_id", p.OrderID),
		zap.String("amount", amount.StringFixed(2)),
	)
	h.done(ctx, webhookID)
	return OutcomePaid
}

// referencesOrder checks the invoice reference, "<orderID>-<orderHash>",
// against the order the payment belongs to.
func referencesOrder(reference string, orderID uint) bool {
	id, _, ok := strings.Cut(reference, "-")
	return ok && id == strconv.FormatUint(uint64(orderID), 10)
}

// alreadyPaid lets a repeated notification skip the provider once the
// payment is settled. Unsettled payments are processed again.
func (h *Handler) alreadyPaid(ctx context.Context, hash string) bool {
	p, err := h.Orders.LoadPaymentByHash(ctx, hash)
	if err != nil {
		logger.FromCtx(ctx).Warn("Payment for duplicate notification not found", zap.Error(err))
		return false
	}
	return p.Paid
}

func (h *Handler) done(ctx context.Context, webhookID int64) {
	if webhookID == 0 {
		return
	}
	if err := h.Repo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		logger.FromCtx(ctx).Error("Failed to mark notification processed", zap.Int64("webhook_id", webhookID), zap.Error(err))
	}
}

func (h *Handler) fail(ctx context.Context, webhookID int64, reason string) {
	logger.FromCtx(ctx).Error("Notification not applied", zap.String("reason", reason))
	if webhookID == 0 {
		return
	}
	if err := h.Repo.MarkWebhookFailed(ctx, webhookID, reason); err != nil {
		logger.FromCtx(ctx).Error("Failed to mark notification failed", zap.Int64("webhook_id", webhookID), zap.Error(err))
	}
}
