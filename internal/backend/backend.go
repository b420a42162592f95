// Package backend defines the inference capability the gateway translates
// for. A Runner accepts a backend catalog model id and an already-built
// dialect-specific payload, and returns whatever the backend produced; the
// response shape is backend-dependent and left to the extractor to probe.
package backend

import (
	"context"
	"encoding/json"
)

type Runner interface {
	Run(ctx context.Context, backendModelID string, payload any) (json.RawMessage, error)
}
