package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/feedlift/feedlift-backend/api/responses"
	"github.com/feedlift/feedlift-backend/internal/messaging"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type messagingWebhookService interface {
	HandleWebhook(ctx context.Context, event messaging.WebhookEvent) (*messaging.WebhookResult, error)
}

// Evolution handles inbound WhatsApp gateway callbacks. Every recognized
// envelope is acknowledged with a 200; processing is best-effort.
func Evolution(svc messagingWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "messaging service unavailable"))
			return
		}

		// The gateway envelope carries extra provider fields; decode loosely.
		var event messaging.WebhookEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		result, err := svc.HandleWebhook(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
