package controllers

import (
	"net/http"

	"github.com/feedlift/feedlift-backend/api/middleware"
	"github.com/feedlift/feedlift-backend/api/responses"
	"github.com/feedlift/feedlift-backend/api/validators"
	"github.com/feedlift/feedlift-backend/internal/assist"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type generateRequest struct {
	Prompt      string  `json:"prompt" validate:"required,max=4000"`
	Context     string  `json:"context" validate:"omitempty,max=4000"`
	TaskType    string  `json:"task_type" validate:"omitempty,max=64"`
	MaxTokens   int     `json:"max_tokens" validate:"omitempty,min=1,max=4000"`
	Temperature float32 `json:"temperature" validate:"omitempty,min=0,max=2"`
}

// Generate produces assistant text for the requested task type.
func Generate(svc assist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assist service unavailable"))
			return
		}

		var req generateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		taskType, err := enums.ParseTaskType(req.TaskType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task type"))
			return
		}

		result, err := svc.Generate(r.Context(), assist.GenerateInput{
			Prompt:      req.Prompt,
			Context:     req.Context,
			TaskType:    taskType,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			UserID:      middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
