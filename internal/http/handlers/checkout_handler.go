package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"openspots/internal/http/middleware"
	"openspots/internal/payments"
)

type checkoutRequest struct {
	UserID    string  `json:"userId"`
	EventID   string  `json:"eventId" validate:"required"`
	SpotID    string  `json:"spotId" validate:"required"`
	SpotLabel string  `json:"spotLabel"`
	EventName string  `json:"eventName"`
	Price     float64 `json:"price" validate:"gt=0"`
}

// NewCheckoutHandler returns POST /create-checkout-session handler. The
// booking identifiers travel as processor metadata and come back on the
// completion webhook.
func NewCheckoutHandler(stripeClient *payments.StripeClient, baseURL string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "eventId, spotId and price required")
			return
		}
		if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
			req.UserID = uid
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId required")
			return
		}

		url, err := stripeClient.CreateCheckoutSession(r.Context(), payments.CheckoutInput{
			UserID:    req.UserID,
			EventID:   req.EventID,
			SpotID:    req.SpotID,
			SpotLabel: req.SpotLabel,
			EventName: req.EventName,
			Price:     req.Price,
		}, baseURL)
		if err != nil {
			logger.Error("failed to create checkout session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create checkout session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}
