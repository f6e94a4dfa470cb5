package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/PortNumber53/payarc-mid/backend/internal/gateway"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// Form fields posted by the storefront payment form.
const (
	fieldCardNumber = "payarc_card_number"
	fieldExpMonth   = "payarc_exp_month"
	fieldExpYear    = "payarc_exp_year"
	fieldCVV        = "payarc_cvv"
)

// CheckoutProcessor runs checkout for one order.
type CheckoutProcessor interface {
	Process(ctx context.Context, orderID int64, card models.CardInput) (*gateway.CheckoutResult, error)
}

// Checkout handles the platform's process-payment call for an order.
func Checkout(processor CheckoutProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := idParam(r, "orderID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_order", "invalid order id")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_form", "invalid form payload")
			return
		}

		card := models.CardInput{
			Number:   r.PostForm.Get(fieldCardNumber),
			ExpMonth: r.PostForm.Get(fieldExpMonth),
			ExpYear:  r.PostForm.Get(fieldExpYear),
			CVV:      r.PostForm.Get(fieldCVV),
		}

		result, err := processor.Process(r.Context(), orderID, card)
		if err != nil {
			var cerr *gateway.CheckoutError
			switch {
			case errors.Is(err, gateway.ErrGatewayDisabled):
				writeError(w, http.StatusServiceUnavailable, "gateway_disabled", "PayArc payments are not available.")
			case errors.Is(err, models.ErrOrderNotFound):
				writeError(w, http.StatusNotFound, "order_not_found", "order not found")
			case errors.As(err, &cerr) && cerr.Validation:
				writeError(w, http.StatusUnprocessableEntity, "invalid_card", cerr.Message())
			case errors.As(err, &cerr):
				writeError(w, http.StatusPaymentRequired, "payment_failed", cerr.Message())
			default:
				log.Printf("[checkout] order %d: %v", orderID, err)
				writeError(w, http.StatusInternalServerError, "internal_error", "failed to process payment")
			}
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
