package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/api/middleware"
	"github.com/feedlift/feedlift-backend/api/responses"
	"github.com/feedlift/feedlift-backend/api/validators"
	"github.com/feedlift/feedlift-backend/internal/notifications"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type subscriptionActionRequest struct {
	Action       string `json:"action" validate:"required"`
	Subscription *struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
	Endpoint    string          `json:"endpoint"`
	All         bool            `json:"all"`
	Preferences map[string]bool `json:"preferences"`
	Global      bool            `json:"global"`
}

// SubscriptionAction is the single dispatch endpoint for push subscription
// management. The action field routes to subscribe, unsubscribe, get,
// update-preferences, or cleanup; anything else is a 400.
func SubscriptionAction(svc notifications.Subscriptions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req subscriptionActionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch req.Action {
		case "subscribe":
			if req.Subscription == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "subscription payload required"))
				return
			}
			sub, err := svc.Subscribe(r.Context(), notifications.SubscribeInput{
				UserID:    userID,
				Endpoint:  req.Subscription.Endpoint,
				P256dh:    req.Subscription.Keys.P256dh,
				Auth:      req.Subscription.Keys.Auth,
				UserAgent: r.UserAgent(),
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, sub)

		case "unsubscribe":
			affected, err := svc.Unsubscribe(r.Context(), notifications.UnsubscribeInput{
				UserID:   userID,
				Endpoint: req.Endpoint,
				All:      req.All,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]int64{"deactivated": affected})

		case "get":
			overview, err := svc.Get(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, overview)

		case "update-preferences":
			prefs, err := svc.UpdatePreferences(r.Context(), userID, req.Preferences)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, prefs)

		case "cleanup":
			scope := &userID
			if req.Global {
				if !middleware.IsAdminFromContext(r.Context()) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required for global cleanup"))
					return
				}
				scope = nil
			}
			result, err := svc.Cleanup(r.Context(), scope)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)

		default:
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown action").WithDetails(map[string]string{"action": req.Action}))
		}
	}
}
