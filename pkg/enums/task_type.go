package enums

import "fmt"

// TaskType selects the system prompt template for the text-generation helper.
type TaskType string

const (
	TaskTypeGeneral           TaskType = "general"
	TaskTypeCustomerSupport   TaskType = "customer_support"
	TaskTypeContentGeneration TaskType = "content_generation"
	TaskTypeHashtagSuggestion TaskType = "hashtag_suggestion"
	TaskTypeCaptionWriting    TaskType = "caption_writing"
	TaskTypeEmailTemplate     TaskType = "email_template"
)

var validTaskTypes = []TaskType{
	TaskTypeGeneral,
	TaskTypeCustomerSupport,
	TaskTypeContentGeneration,
	TaskTypeHashtagSuggestion,
	TaskTypeCaptionWriting,
	TaskTypeEmailTemplate,
}

// String implements fmt.Stringer.
func (t TaskType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TaskType.
func (t TaskType) IsValid() bool {
	for _, candidate := range validTaskTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaskType converts raw input into a TaskType, defaulting to general.
func ParseTaskType(value string) (TaskType, error) {
	if value == "" {
		return TaskTypeGeneral, nil
	}
	for _, candidate := range validTaskTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q", value)
}

// LLMProvider identifies a text-generation backend.
type LLMProvider string

const (
	LLMProviderOpenAI    LLMProvider = "openai"
	LLMProviderAnthropic LLMProvider = "anthropic"
	LLMProviderGoogle    LLMProvider = "google"
)

// String implements fmt.Stringer.
func (p LLMProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known LLMProvider.
func (p LLMProvider) IsValid() bool {
	switch p {
	case LLMProviderOpenAI, LLMProviderAnthropic, LLMProviderGoogle:
		return true
	default:
		return false
	}
}
