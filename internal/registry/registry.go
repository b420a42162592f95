// Package registry maps the public model identifiers accepted on the wire to
// the backend catalog identifiers they run as, and classifies each backend
// model into the request dialect it speaks.
package registry

import (
	"errors"
	"strings"
)

var ErrModelNotSupported = errors.New("model not supported")

// Dialect selects which backend request shape a model expects.
type Dialect string

const (
	// DialectLegacy is the prompt/messages completion shape most catalog
	// models accept.
	DialectLegacy Dialect = "legacy"
	// DialectStructured is the responses-style shape (input, instructions,
	// reasoning) spoken by the @cf/openai/ family.
	DialectStructured Dialect = "structured"
)

// structuredPrefix marks the backend model family that only accepts the
// responses-style request shape.
const structuredPrefix = "@cf/openai/"

// DefaultModel is used when a request omits the model field.
const DefaultModel = "deepseek-r1"

type Model struct {
	PublicID  string
	BackendID string
	Dialect   Dialect
}

// Registry is a fixed lookup table, built once at startup and read-only
// afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	models map[string]Model
	order  []string
}

// New builds the default model table.
func New() *Registry {
	return newFromPairs([]Model{
		{PublicID: "deepseek-r1", BackendID: "@cf/deepseek-ai/deepseek-r1-distill-qwen-32b"},
		{PublicID: "llama-3.3-70b", BackendID: "@cf/meta/llama-3.3-70b-instruct-fp8-fast"},
		{PublicID: "llama-3.1-8b", BackendID: "@cf/meta/llama-3.1-8b-instruct"},
		{PublicID: "qwen2.5-coder-32b", BackendID: "@cf/qwen/qwen2.5-coder-32b-instruct"},
		{PublicID: "mistral-7b", BackendID: "@cf/mistral/mistral-7b-instruct-v0.1"},
		{PublicID: "gpt-oss-120b", BackendID: "@cf/openai/gpt-oss-120b"},
		{PublicID: "gpt-oss-20b", BackendID: "@cf/openai/gpt-oss-20b"},
	})
}

func newFromPairs(models []Model) *Registry {
	r := &Registry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		m.Dialect = classify(m.BackendID)
		r.models[m.PublicID] = m
		r.order = append(r.order, m.PublicID)
	}
	return r
}

func classify(backendID string) Dialect {
	if strings.HasPrefix(backendID, structuredPrefix) {
		return DialectStructured
	}
	return DialectLegacy
}

// Resolve looks up a public model id, substituting DefaultModel when the id
// is empty. Unknown ids return ErrModelNotSupported.
func (r *Registry) Resolve(publicID string) (Model, error) {
	if publicID == "" {
		publicID = DefaultModel
	}
	m, ok := r.models[publicID]
	if !ok {
		return Model{}, ErrModelNotSupported
	}
	return m, nil
}

// List returns every model in registration order.
func (r *Registry) List() []Model {
	out := make([]Model, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// IDs returns the public identifiers in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
