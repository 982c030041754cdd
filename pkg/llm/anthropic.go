package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

const anthropicBaseURL = "https://api.anthropic.com/v1/messages"

type anthropicProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	logger     *logger.Logger
}

func newAnthropicProvider(apiKey, model string, timeout time.Duration, logg *logger.Logger) *anthropicProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &anthropicProvider{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		logger:     logg,
	}
}

func (p *anthropicProvider) Name() enums.LLMProvider {
	return enums.LLMProviderAnthropic
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	content := req.Prompt
	if req.Context != "" {
		content = "Contexto: " + req.Context + "\n\n" + content
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: content},
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode anthropic request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicBaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build anthropic request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "anthropic completion failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "anthropic read body")
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("anthropic api status %d", resp.StatusCode))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "anthropic decode")
	}
	if len(parsed.Content) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "anthropic returned no content")
	}

	if p.logger != nil {
		logCtx := p.logger.WithFields(ctx, map[string]any{
			"model":  parsed.Model,
			"tokens": parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		})
		p.logger.Info(logCtx, "anthropic completion")
	}

	return &Completion{
		Text:       parsed.Content[0].Text,
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
