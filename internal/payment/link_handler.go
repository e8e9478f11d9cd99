package payment

import (
	"errors"
	"net/http"
	"strings"

	"monopay-be/internal/logger"
	"monopay-be/internal/order"
	"monopay-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LinkHandler struct {
	Links LinkService
}

func NewLinkHandler(links LinkService) *LinkHandler {
	return &LinkHandler{Links: links}
}

// CreatePaymentLink handles POST /orders/{orderID}/payment-link[?amount=].
func (h *LinkHandler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	orderID, err := utils.ToUint(chi.URLParam(r, "orderID"))
	if err != nil || orderID == 0 {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	amount := decimal.Zero
	if raw := strings.TrimSpace(r.URL.Query().Get("amount")); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil || amount.IsNegative() {
			utils.WriteJSONError(w, "invalid amount", http.StatusBadRequest)
			return
		}
	}

	url, err := h.Links.PaymentLink(ctx, orderID, amount)
	if err != nil {
		code, msg := linkErrorStatus(err)
		if code >= http.StatusInternalServerError {
			log.Error("Failed to create payment link", zap.Uint("order_id", orderID), zap.Error(err))
		}
		utils.WriteJSONError(w, msg, code)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func linkErrorStatus(err error) (int, string) {
	var apiErr *APIError
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, order.ErrOrderAlreadyPaid), errors.Is(err, order.ErrOrderNotPayable):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrEmptyClientCredentials):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, ErrMissingPageURL), errors.As(err, &apiErr):
		return http.StatusBadGateway, "payment provider error"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
