package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LogRequest(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO usage_records (request_id, model, backend_model, dialect, prompt_tokens, completion_tokens, stream, fallback, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		rec.RequestID, rec.Model, rec.BackendModel, rec.Dialect,
		rec.PromptTokens, rec.CompletionTokens, rec.Stream, rec.Fallback, rec.LatencyMs,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log usage record: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetRecent(ctx context.Context, from, to time.Time) ([]*Record, error) {
	query := `
		SELECT id, request_id, model, backend_model, dialect, prompt_tokens, completion_tokens, stream, fallback, latency_ms, created_at
		FROM usage_records
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.Model, &rec.BackendModel, &rec.Dialect,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.Stream, &rec.Fallback,
			&rec.LatencyMs, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage records: %w", err)
	}

	return records, nil
}
