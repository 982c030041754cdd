package assist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/internal/audit"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/llm"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

// hashtagTokenRe matches a bare hashtag candidate: a word that may or may not
// already carry its # prefix.
var hashtagTokenRe = regexp.MustCompile(`#?[\p{L}\p{N}_]+`)

// GenerateInput is one text-generation request.
type GenerateInput struct {
	Prompt      string
	Context     string
	TaskType    enums.TaskType
	MaxTokens   int
	Temperature float32
	UserID      uuid.UUID
}

// GenerateResult is the completion plus its provenance. Mock is the only
// signal that the text came from a canned fallback instead of a provider.
type GenerateResult struct {
	Text       string         `json:"text"`
	TaskType   enums.TaskType `json:"task_type"`
	Model      string         `json:"model"`
	TokensUsed int            `json:"tokens_used"`
	Mock       bool           `json:"mock"`
}

// Service generates assistant text with a per-task persona. Provider absence
// or failure degrades to a canned response, never an error.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error)
}

type service struct {
	provider llm.Provider
	audit    audit.Recorder
	logg     *logger.Logger
}

// ServiceParams wires the assist service dependencies. Provider may be nil
// when no API key is configured; every request then falls back.
type ServiceParams struct {
	Provider llm.Provider
	Audit    audit.Recorder
	Logger   *logger.Logger
}

// NewService builds the assist service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Audit == nil {
		params.Audit = audit.Noop()
	}
	return &service{
		provider: params.Provider,
		audit:    params.Audit,
		logg:     params.Logger,
	}, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt required")
	}
	if !input.TaskType.IsValid() {
		input.TaskType = enums.TaskTypeGeneral
	}

	logCtx := s.logg.WithField(ctx, "task_type", input.TaskType.String())
	result := s.complete(logCtx, input)
	result.Text = postProcess(input.TaskType, result.Text)

	var userID *uuid.UUID
	if input.UserID != uuid.Nil {
		userID = &input.UserID
	}
	s.audit.Record(ctx, audit.Entry{
		Endpoint: "assist/generate",
		Request: map[string]any{
			"task_type":  input.TaskType,
			"max_tokens": input.MaxTokens,
		},
		Response: map[string]any{
			"model":       result.Model,
			"tokens_used": result.TokensUsed,
			"mock":        result.Mock,
		},
		StatusCode: 200,
		UserID:     userID,
	})
	return result, nil
}

func (s *service) complete(ctx context.Context, input GenerateInput) *GenerateResult {
	if s.provider == nil {
		s.logg.Info(ctx, "no llm provider configured; using canned response")
		return s.fallback(input.TaskType)
	}

	completion, err := s.provider.Complete(ctx, llm.Request{
		SystemPrompt: systemPromptFor(input.TaskType),
		Prompt:       input.Prompt,
		Context:      input.Context,
		MaxTokens:    input.MaxTokens,
		Temperature:  input.Temperature,
	})
	if err != nil {
		s.logg.Error(ctx, "llm completion failed; using canned response", err)
		return s.fallback(input.TaskType)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"model":       completion.Model,
		"tokens_used": completion.TokensUsed,
	}), "llm completion succeeded")

	return &GenerateResult{
		Text:       completion.Text,
		TaskType:   input.TaskType,
		Model:      completion.Model,
		TokensUsed: completion.TokensUsed,
	}
}

func (s *service) fallback(task enums.TaskType) *GenerateResult {
	return &GenerateResult{
		Text:     cannedResponseFor(task),
		TaskType: task,
		Model:    "canned",
		Mock:     true,
	}
}

// postProcess applies task-specific touch-ups to the generated text.
func postProcess(task enums.TaskType, text string) string {
	switch task {
	case enums.TaskTypeHashtagSuggestion:
		return prefixHashtags(text)
	case enums.TaskTypeEmailTemplate:
		return ensureSubjectLine(text)
	default:
		return text
	}
}

// prefixHashtags guarantees every suggested token carries its # prefix,
// regardless of how the model formatted the list.
func prefixHashtags(text string) string {
	return hashtagTokenRe.ReplaceAllStringFunc(text, func(token string) string {
		if strings.HasPrefix(token, "#") {
			return token
		}
		return "#" + token
	})
}

// ensureSubjectLine prepends a subject header when the model omitted one.
func ensureSubjectLine(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "assunto:") || strings.HasPrefix(lower, "subject:") {
		return trimmed
	}
	return "Assunto: Novidades para o seu Instagram\n\n" + trimmed
}
