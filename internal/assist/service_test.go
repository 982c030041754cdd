package assist

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/llm"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubProvider struct {
	completion *llm.Completion
	err        error
	lastReq    llm.Request
}

func (p *stubProvider) Name() enums.LLMProvider { return enums.LLMProviderOpenAI }

func (p *stubProvider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return p.completion, nil
}

func newTestService(t *testing.T, provider llm.Provider) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Provider: provider,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGenerateWithProvider(t *testing.T) {
	provider := &stubProvider{completion: &llm.Completion{
		Text:       "Conteúdo gerado.",
		Model:      "gpt-4o-mini",
		TokensUsed: 42,
	}}
	svc := newTestService(t, provider)

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "Escreva um post sobre crescimento.",
		TaskType: enums.TaskTypeContentGeneration,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Mock {
		t.Fatal("provider response must not be marked mock")
	}
	if result.Model != "gpt-4o-mini" || result.TokensUsed != 42 {
		t.Fatalf("provenance not carried: %+v", result)
	}
	if provider.lastReq.SystemPrompt == "" {
		t.Fatal("task persona must be sent as system prompt")
	}
}

func TestGenerateFallsBackWithoutProvider(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "Qualquer coisa",
		TaskType: enums.TaskTypeCustomerSupport,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !result.Mock || result.Model != "canned" {
		t.Fatalf("expected canned fallback, got %+v", result)
	}
	if result.Text == "" {
		t.Fatal("canned fallback must carry text")
	}
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	svc := newTestService(t, &stubProvider{err: errors.New("rate limited")})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "Qualquer coisa",
		TaskType: enums.TaskTypeGeneral,
	})
	if err != nil {
		t.Fatalf("provider failure must degrade, not error: %v", err)
	}
	if !result.Mock {
		t.Fatal("expected mock result after provider failure")
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Generate(context.Background(), GenerateInput{Prompt: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateUnknownTaskFallsBackToGeneral(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "oi",
		TaskType: enums.TaskType("banana"),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.TaskType != enums.TaskTypeGeneral {
		t.Fatalf("unknown task should coerce to general, got %v", result.TaskType)
	}
}

func TestGeneratePrefixesHashtags(t *testing.T) {
	provider := &stubProvider{completion: &llm.Completion{
		Text:  "instagram #crescimento engajamento",
		Model: "gpt-4o-mini",
	}}
	svc := newTestService(t, provider)

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "hashtags para nicho fitness",
		TaskType: enums.TaskTypeHashtagSuggestion,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "#instagram #crescimento #engajamento"
	if result.Text != want {
		t.Fatalf("hashtag prefixing: got %q, want %q", result.Text, want)
	}
}

func TestGenerateEnsuresEmailSubject(t *testing.T) {
	provider := &stubProvider{completion: &llm.Completion{
		Text:  "Olá! Conheça nossos pacotes.",
		Model: "gpt-4o-mini",
	}}
	svc := newTestService(t, provider)

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "e-mail de promoção",
		TaskType: enums.TaskTypeEmailTemplate,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(result.Text, "Assunto:") {
		t.Fatalf("missing subject line: %q", result.Text)
	}
}

func TestGenerateKeepsExistingSubject(t *testing.T) {
	provider := &stubProvider{completion: &llm.Completion{
		Text:  "Assunto: Oferta especial\n\nCorpo do e-mail.",
		Model: "gpt-4o-mini",
	}}
	svc := newTestService(t, provider)

	result, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "e-mail de promoção",
		TaskType: enums.TaskTypeEmailTemplate,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Count(result.Text, "Assunto:") != 1 {
		t.Fatalf("subject line duplicated: %q", result.Text)
	}
}
