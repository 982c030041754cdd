package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/api/middleware"
	"github.com/feedlift/feedlift-backend/api/responses"
	"github.com/feedlift/feedlift-backend/api/validators"
	internalpayments "github.com/feedlift/feedlift-backend/internal/payments"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	Description   string `json:"description" validate:"omitempty,max=256"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=32"`
}

// InitiatePayment creates the provider payment for an order owned by the
// caller.
func InitiatePayment(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), internalpayments.InitiateInput{
			OrderID:       orderID,
			UserID:        userID,
			Description:   validators.SanitizeString(req.Description, 256),
			PaymentMethod: validators.SanitizeString(req.PaymentMethod, 32),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
