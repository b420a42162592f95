package proxy

import (
	"context"
	"encoding/json"
	"log"

	"github.com/quanghm/workersai-gateway/internal/backend"
	"github.com/quanghm/workersai-gateway/internal/openai"
	"github.com/quanghm/workersai-gateway/internal/registry"
	"github.com/quanghm/workersai-gateway/internal/translate"
)

// Invoker runs the single backend inference call for a request. Legacy
// models occasionally reject the messages shape; those get exactly one retry
// with the conversation flattened into a prompt transcript. Structured
// models get no retry since that family does not accept the legacy shape.
type Invoker struct {
	runner backend.Runner
}

func NewInvoker(runner backend.Runner) *Invoker {
	return &Invoker{runner: runner}
}

// Invoke returns the raw backend response plus whether the fallback request
// produced it.
func (i *Invoker) Invoke(ctx context.Context, model registry.Model, req *openai.ChatRequest) (json.RawMessage, bool, error) {
	payload := translate.Build(req, model.Dialect)

	raw, err := i.runner.Run(ctx, model.BackendID, payload)
	if err == nil {
		return raw, false, nil
	}
	if model.Dialect == registry.DialectStructured {
		return nil, false, err
	}

	log.Printf("invoker: %s failed with messages shape, retrying with flattened prompt: %v", model.BackendID, err)

	raw, err = i.runner.Run(ctx, model.BackendID, translate.BuildFallback(req))
	if err != nil {
		return nil, true, err
	}
	return raw, true, nil
}
