package translate

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/quanghm/workersai-gateway/internal/registry"
)

// assistantCue marks the spot where some backends echo the flattened prompt
// back before the actual answer.
const assistantCue = "Assistant: "

type structuredOutput struct {
	Output []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Extract normalizes a backend response of unknown shape into plain text.
// The response is untrusted input: fields are probed in priority order and
// nothing is validated against a schema. An unrecognized shape degrades to
// the raw serialized response rather than an error.
func Extract(raw json.RawMessage, dialect registry.Dialect) string {
	text := extractText(raw, dialect)
	return stripEchoedPrompt(text)
}

func extractText(raw json.RawMessage, dialect registry.Dialect) string {
	if dialect == registry.DialectStructured {
		if text, ok := extractStructured(raw); ok {
			return text
		}
		// No output array: fall through to the generic probes.
	}
	return probeLegacy(raw)
}

// extractStructured flattens output[].content[] entries of type
// "output_text", newline-joined across all elements in order. The second
// return reports whether an output array was present at all.
func extractStructured(raw json.RawMessage) (string, bool) {
	var probe struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe.Output) == 0 {
		return "", false
	}

	var resp structuredOutput
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", false
	}

	var parts []string
	for _, item := range resp.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.Join(parts, "\n"), true
}

// probeLegacy checks the known completion shapes in priority order:
// response, generated_text, choices[0].message.content, then the whole
// response being a bare string.
func probeLegacy(raw json.RawMessage) string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return diagnostic(raw)
	}

	switch v := value.(type) {
	case map[string]any:
		if s := stringField(v, "response"); s != "" {
			return s
		}
		if s := stringField(v, "generated_text"); s != "" {
			return s
		}
		if s := firstChoiceContent(v); s != "" {
			return s
		}
	case string:
		return v
	}
	return diagnostic(raw)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstChoiceContent(m map[string]any) string {
	choices, _ := m["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}
	first, _ := choices[0].(map[string]any)
	message, _ := first["message"].(map[string]any)
	return stringField(message, "content")
}

// diagnostic returns the serialized response verbatim so an operator can see
// what the backend actually sent. The shape should be added to the probes.
func diagnostic(raw json.RawMessage) string {
	log.Printf("translate: unrecognized backend response shape: %.256s", raw)
	return string(raw)
}

// stripEchoedPrompt truncates to everything after the last assistant cue,
// dropping prompt preambles that some backends repeat verbatim.
func stripEchoedPrompt(text string) string {
	if i := strings.LastIndex(text, assistantCue); i >= 0 {
		return text[i+len(assistantCue):]
	}
	return text
}
