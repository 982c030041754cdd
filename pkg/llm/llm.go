package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = errors.New("llm provider not configured")

// ErrUnsupportedProvider is returned for providers without an implementation.
var ErrUnsupportedProvider = errors.New("llm provider not implemented")

// Request is one prompt-in/text-out completion call.
type Request struct {
	SystemPrompt string
	Prompt       string
	Context      string
	MaxTokens    int
	Temperature  float32
}

// Completion is the provider's answer plus usage metadata.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider abstracts one remote text-generation backend.
type Provider interface {
	Name() enums.LLMProvider
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// NewFromConfig selects and builds the configured provider. Google is
// recognized but has no implementation: selecting it yields a provider whose
// calls always fail, so callers degrade per request instead of at startup.
func NewFromConfig(cfg config.LLMConfig, logg *logger.Logger) (Provider, error) {
	provider := enums.LLMProvider(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	timeout := time.Duration(cfg.RequestTimeoutS) * time.Second

	switch provider {
	case enums.LLMProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAIKey) == "" {
			return nil, ErrNotConfigured
		}
		return newOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, timeout, logg), nil
	case enums.LLMProviderAnthropic:
		if strings.TrimSpace(cfg.AnthropicKey) == "" {
			return nil, ErrNotConfigured
		}
		return newAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, timeout, logg), nil
	case enums.LLMProviderGoogle:
		return unsupportedProvider{name: provider}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// unsupportedProvider stands in for recognized backends without an
// implementation. Every completion call fails.
type unsupportedProvider struct {
	name enums.LLMProvider
}

func (p unsupportedProvider) Name() enums.LLMProvider { return p.name }

func (p unsupportedProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, p.name)
}
