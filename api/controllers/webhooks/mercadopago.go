package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/feedlift/feedlift-backend/api/responses"
	internalpayments "github.com/feedlift/feedlift-backend/internal/payments"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type paymentWebhookService interface {
	ProcessWebhook(ctx context.Context, input internalpayments.WebhookInput) (*internalpayments.WebhookResult, error)
}

type signatureVerifier interface {
	VerifyWebhookSignature(signatureHeader, requestID, dataID string) error
}

type mercadoPagoEvent struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// MercadoPago handles asynchronous payment-status callbacks. Non-payment
// event types are acknowledged with a 200 so the provider stops retrying.
func MercadoPago(svc paymentWebhookService, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event mercadoPagoEvent
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
				return
			}
		}

		eventType := strings.TrimSpace(r.URL.Query().Get("type"))
		if eventType == "" {
			eventType = event.Type
		}
		dataID := strings.TrimSpace(r.URL.Query().Get("data.id"))
		if dataID == "" {
			dataID = event.Data.ID
		}

		if err := verifier.VerifyWebhookSignature(
			r.Header.Get("x-signature"),
			r.Header.Get("x-request-id"),
			dataID,
		); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		result, err := svc.ProcessWebhook(ctx, internalpayments.WebhookInput{
			Type:   eventType,
			DataID: dataID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
