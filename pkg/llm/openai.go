package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type openAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

func newOpenAIProvider(apiKey, model string, timeout time.Duration, logg *logger.Logger) *openAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openAIProvider{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  logg,
	}
}

func (p *openAIProvider) Name() enums.LLMProvider {
	return enums.LLMProviderOpenAI
}

func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	content := req.Prompt
	if req.Context != "" {
		content = "Contexto: " + req.Context + "\n\n" + content
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "openai returned no choices")
	}

	if p.logger != nil {
		logCtx := p.logger.WithFields(ctx, map[string]any{
			"model":  resp.Model,
			"tokens": resp.Usage.TotalTokens,
		})
		p.logger.Info(logCtx, "openai completion")
	}

	return &Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
