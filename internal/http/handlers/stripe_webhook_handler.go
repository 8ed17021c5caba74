package handlers

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"openspots/internal/payments"
)

const maxWebhookBody = 65536

// NewStripeWebhookHandler returns POST /webhooks/stripe handler. The
// signature is verified against the raw body before anything is decoded;
// a processing error answers 500 so the processor redelivers.
func NewStripeWebhookHandler(svc *payments.Service, signingSecret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), signingSecret)
		if err != nil {
			logger.Warn("webhook signature verification failed", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}

		if err := svc.HandleEvent(r.Context(), event); err != nil {
			logger.Error("webhook processing failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "event processing failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
