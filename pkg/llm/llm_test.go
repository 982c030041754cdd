package llm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestNewFromConfigRequiresKey(t *testing.T) {
	_, err := NewFromConfig(config.LLMConfig{Provider: "openai"}, testLogger())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewFromConfigRejectsUnknownProvider(t *testing.T) {
	_, err := NewFromConfig(config.LLMConfig{Provider: "banana"}, testLogger())
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewFromConfigGoogleFailsPerCall(t *testing.T) {
	// Selecting google must not fail construction: the API keeps serving and
	// each completion call errors, so callers fall back per request.
	provider, err := NewFromConfig(config.LLMConfig{Provider: "google"}, testLogger())
	if err != nil {
		t.Fatalf("expected google selection to construct, got %v", err)
	}
	if provider.Name() != enums.LLMProviderGoogle {
		t.Fatalf("expected google provider name, got %s", provider.Name())
	}

	_, err = provider.Complete(context.Background(), Request{Prompt: "oi"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider on completion, got %v", err)
	}
}
