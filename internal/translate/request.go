// Package translate converts between the OpenAI-compatible wire shapes and
// the backend's two request dialects, and normalizes the backend's variable
// response shapes back into plain text.
package translate

import (
	"strings"

	"github.com/quanghm/workersai-gateway/internal/openai"
	"github.com/quanghm/workersai-gateway/internal/registry"
)

const (
	defaultTemperature  = 0.7
	defaultTopP         = 0.9
	legacyMaxTokens     = 4096
	structuredMaxTokens = 2048
	defaultEffort       = "medium"

	defaultInstructions = "You are a helpful assistant."
)

// LegacyRequest is the prompt-completion dialect most catalog models accept.
// Exactly one of Messages or Prompt is set.
type LegacyRequest struct {
	Messages    []openai.ChatMessage `json:"messages,omitempty"`
	Prompt      string               `json:"prompt,omitempty"`
	Temperature float64              `json:"temperature"`
	TopP        float64              `json:"top_p"`
	MaxTokens   int                  `json:"max_tokens"`
}

// StructuredRequest is the responses-style dialect spoken by the
// @cf/openai/ model family.
type StructuredRequest struct {
	Input        string           `json:"input"`
	Instructions string           `json:"instructions"`
	Temperature  float64          `json:"temperature"`
	TopP         float64          `json:"top_p"`
	MaxTokens    int              `json:"max_tokens"`
	Reasoning    openai.Reasoning `json:"reasoning"`
}

// Build constructs the dialect-appropriate backend request. It never fails:
// missing optional fields are defaulted, and message-list validation happens
// upstream before the builder is reached.
func Build(req *openai.ChatRequest, dialect registry.Dialect) any {
	if dialect == registry.DialectStructured {
		return buildStructured(req)
	}
	return buildLegacy(req)
}

func buildStructured(req *openai.ChatRequest) StructuredRequest {
	instructions := defaultInstructions
	for _, m := range req.Messages {
		if m.Role == "system" {
			instructions = m.Content
			break
		}
	}

	// Only user turns feed the input; assistant history is dropped in this
	// dialect.
	var inputs []string
	for _, m := range req.Messages {
		if m.Role == "user" {
			inputs = append(inputs, m.Content)
		}
	}

	effort := defaultEffort
	if req.Reasoning != nil && req.Reasoning.Effort != "" {
		effort = req.Reasoning.Effort
	}

	return StructuredRequest{
		Input:        strings.Join(inputs, "\n"),
		Instructions: instructions,
		Temperature:  floatOr(req.Temperature, defaultTemperature),
		TopP:         floatOr(req.TopP, defaultTopP),
		MaxTokens:    intOr(req.MaxTokens, structuredMaxTokens),
		Reasoning:    openai.Reasoning{Effort: effort},
	}
}

func buildLegacy(req *openai.ChatRequest) LegacyRequest {
	messages := make([]openai.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatMessage{Role: m.Role, Content: m.Content}
	}

	return LegacyRequest{
		Messages:    messages,
		Temperature: floatOr(req.Temperature, defaultTemperature),
		TopP:        floatOr(req.TopP, defaultTopP),
		MaxTokens:   intOr(req.MaxTokens, legacyMaxTokens),
	}
}

// BuildFallback flattens the conversation into a single prompt transcript for
// the one legacy-dialect retry. Each message becomes "<Role>: <content>",
// blank-line separated, with a trailing assistant cue so the model continues
// the conversation rather than echoing it.
func BuildFallback(req *openai.ChatRequest) LegacyRequest {
	var b strings.Builder
	for _, m := range req.Messages {
		b.WriteString(roleLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant: ")

	return LegacyRequest{
		Prompt:      b.String(),
		Temperature: floatOr(req.Temperature, defaultTemperature),
		TopP:        floatOr(req.TopP, defaultTopP),
		MaxTokens:   intOr(req.MaxTokens, legacyMaxTokens),
	}
}

func roleLabel(role string) string {
	switch role {
	case "system":
		return "System"
	case "assistant":
		return "Assistant"
	default:
		return "User"
	}
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}
