package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/quanghm/workersai-gateway/internal/openai"
	"github.com/quanghm/workersai-gateway/internal/registry"
	"github.com/quanghm/workersai-gateway/internal/translate"
)

// mockRunner records every payload and answers from a scripted list.
type mockRunner struct {
	payloads  []any
	responses []json.RawMessage
	errs      []error
}

func (m *mockRunner) Run(ctx context.Context, model string, payload any) (json.RawMessage, error) {
	i := len(m.payloads)
	m.payloads = append(m.payloads, payload)
	if i >= len(m.responses) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	return m.responses[i], m.errs[i]
}

func legacyModel(t *testing.T) registry.Model {
	t.Helper()
	m, err := registry.New().Resolve("deepseek-r1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return m
}

func structuredModel(t *testing.T) registry.Model {
	t.Helper()
	m, err := registry.New().Resolve("gpt-oss-120b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return m
}

func chatReq() *openai.ChatRequest {
	return &openai.ChatRequest{
		Messages: []openai.ChatMessage{{Role: "user", Content: "hello"}},
	}
}

func TestInvoke_Success(t *testing.T) {
	runner := &mockRunner{
		responses: []json.RawMessage{json.RawMessage(`{"response":"hi"}`)},
		errs:      []error{nil},
	}
	inv := NewInvoker(runner)

	raw, usedFallback, err := inv.Invoke(context.Background(), legacyModel(t), chatReq())
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if usedFallback {
		t.Error("Expected no fallback on first-call success")
	}
	if string(raw) != `{"response":"hi"}` {
		t.Errorf("Unexpected response: %s", raw)
	}
	if len(runner.payloads) != 1 {
		t.Errorf("Expected 1 backend call, got %d", len(runner.payloads))
	}
	if _, ok := runner.payloads[0].(translate.LegacyRequest); !ok {
		t.Errorf("Expected legacy payload, got %T", runner.payloads[0])
	}
}

func TestInvoke_LegacyFallback(t *testing.T) {
	runner := &mockRunner{
		responses: []json.RawMessage{nil, json.RawMessage(`{"response":"from fallback"}`)},
		errs:      []error{errors.New("messages shape rejected"), nil},
	}
	inv := NewInvoker(runner)

	raw, usedFallback, err := inv.Invoke(context.Background(), legacyModel(t), chatReq())
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !usedFallback {
		t.Error("Expected fallback flag")
	}
	if string(raw) != `{"response":"from fallback"}` {
		t.Errorf("Unexpected response: %s", raw)
	}

	if len(runner.payloads) != 2 {
		t.Fatalf("Expected 2 backend calls, got %d", len(runner.payloads))
	}
	fallback, ok := runner.payloads[1].(translate.LegacyRequest)
	if !ok {
		t.Fatalf("Expected legacy fallback payload, got %T", runner.payloads[1])
	}
	if fallback.Prompt == "" || len(fallback.Messages) != 0 {
		t.Errorf("Fallback must carry a prompt transcript only: %+v", fallback)
	}
}

func TestInvoke_LegacyBothFail(t *testing.T) {
	runner := &mockRunner{
		responses: []json.RawMessage{nil, nil},
		errs:      []error{errors.New("first"), errors.New("second")},
	}
	inv := NewInvoker(runner)

	_, usedFallback, err := inv.Invoke(context.Background(), legacyModel(t), chatReq())
	if err == nil {
		t.Fatal("Expected error when both attempts fail")
	}
	if err.Error() != "second" {
		t.Errorf("Expected the retry's failure to propagate, got %v", err)
	}
	if !usedFallback {
		t.Error("Expected fallback flag on retried failure")
	}
	if len(runner.payloads) != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", len(runner.payloads))
	}
}

func TestInvoke_StructuredNoRetry(t *testing.T) {
	runner := &mockRunner{
		responses: []json.RawMessage{nil},
		errs:      []error{errors.New("backend down")},
	}
	inv := NewInvoker(runner)

	_, _, err := inv.Invoke(context.Background(), structuredModel(t), chatReq())
	if err == nil {
		t.Fatal("Expected error for structured failure")
	}
	if len(runner.payloads) != 1 {
		t.Errorf("Structured dialect must not retry, got %d calls", len(runner.payloads))
	}
	if _, ok := runner.payloads[0].(translate.StructuredRequest); !ok {
		t.Errorf("Expected structured payload, got %T", runner.payloads[0])
	}
}
