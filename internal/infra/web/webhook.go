package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/infra/metrics"
	"karaoke-subscription/internal/infra/payment"
)

// Payloads larger than this are not payment notifications.
const maxWebhookBody = 64 * 1024

// webhookBody covers the notification shapes MercadoPago delivers: the
// v2 object body and (via query fallback in the handler) the legacy
// topic/id query form. data.id arrives as a JSON number or a JSON string
// depending on the notification generation, so it is kept raw.
type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

func rawID(raw json.RawMessage) string {
	id := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if id == "null" {
		return ""
	}
	return id
}

// handleWebhook is the inbound notification endpoint. Every reachable
// branch answers the sender; only a failure to reach the gateway reports
// a server error so the at-least-once sender redelivers.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// Gateways probe with other verbs; acknowledge without processing.
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	var body webhookBody
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &body) // malformed body falls back to query params
	}

	// Fixed extraction priority: body-nested id, then query parameter.
	paymentID := rawID(body.Data.ID)
	if paymentID == "" {
		if q := r.URL.Query(); q.Get("data.id") != "" {
			paymentID = q.Get("data.id")
		} else {
			paymentID = q.Get("id")
		}
	}
	eventType := body.Type
	if eventType == "" {
		if t := r.URL.Query().Get("topic"); t != "" {
			eventType = t
		} else {
			eventType = r.URL.Query().Get("type")
		}
	}

	// Signature hardening: enforced only when a secret is configured so
	// sandbox environments without signed notifications keep working.
	if s.webhookSecret != "" && paymentID != "" {
		sig := r.Header.Get("x-signature")
		reqID := r.Header.Get("x-request-id")
		if !payment.VerifyWebhookSignature(s.webhookSecret, sig, reqID, paymentID) {
			s.log.Warn().Str("payment_id", paymentID).Msg("webhook signature rejected")
			metrics.IncWebhookEvent("bad_signature")
			writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}
	}

	// Acknowledgment is a reporting step, not a commit gate: detach the
	// pipeline from the request so a dropped connection cannot leave a
	// half-applied entitlement.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
	defer cancel()

	outcome, err := s.reconcileUC.Handle(ctx, model.PaymentNotification{
		EventType:        eventType,
		GatewayPaymentID: paymentID,
	})
	if err != nil {
		// Retryable: gateway or storage failure. Signal the sender to redeliver.
		s.log.Error().Err(err).Str("payment_id", paymentID).Msg("reconciliation failed, inviting redelivery")
		metrics.IncWebhookEvent("retryable")
		writeError(w, http.StatusBadGateway, "temporary failure, please retry")
		return
	}

	metrics.IncWebhookEvent(string(outcome))
	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"outcome":  string(outcome),
	})
}
