package usage

import (
	"context"
	"time"
)

// Record captures one completed gateway request for accounting. Token counts
// are the gateway's own estimates since the backend does not report usage.
type Record struct {
	ID               string
	RequestID        string
	Model            string
	BackendModel     string
	Dialect          string
	PromptTokens     int
	CompletionTokens int
	Stream           bool
	Fallback         bool
	LatencyMs        int64
	CreatedAt        time.Time
}

type Store interface {
	LogRequest(ctx context.Context, rec *Record) error
	GetRecent(ctx context.Context, from, to time.Time) ([]*Record, error)
}

// NoopStore satisfies Store when no database is configured.
type NoopStore struct{}

func (NoopStore) LogRequest(ctx context.Context, rec *Record) error { return nil }

func (NoopStore) GetRecent(ctx context.Context, from, to time.Time) ([]*Record, error) {
	return nil, nil
}
