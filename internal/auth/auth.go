// Package auth validates gateway API keys against a static list configured
// at startup. Key verification happens before any core handler runs; the
// handlers themselves never see credentials.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quanghm/workersai-gateway/internal/openai"
)

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	apiKeyHashKey contextKey = "api_key_hash"
	requestIDKey  contextKey = "request_id"
)

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// NewMiddleware builds a bearer-token check against the configured key list.
// Keys are stored and compared as sha256 digests.
func NewMiddleware(keys []string) Middleware {
	hashes := make([]string, len(keys))
	for i, k := range keys {
		hashes[i] = hashKey(k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := uuid.New().String()
			ctx = context.WithValue(ctx, requestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "missing or invalid Authorization header")
				return
			}
			keyHash := hashKey(strings.TrimPrefix(authHeader, "Bearer "))

			matched := false
			for _, h := range hashes {
				if subtle.ConstantTimeCompare([]byte(h), []byte(keyHash)) == 1 {
					matched = true
				}
			}
			if !matched {
				unauthorized(w, "invalid API key")
				return
			}

			ctx = context.WithValue(ctx, apiKeyHashKey, keyHash)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(openai.ErrorResponse{Error: openai.ErrorDetail{
		Message: message,
		Type:    "authentication_error",
		Code:    "unauthorized",
	}})
}

// Helpers to extract from context
func GetAPIKeyHash(ctx context.Context) string {
	if h, ok := ctx.Value(apiKeyHashKey).(string); ok {
		return h
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Helpers for testing
func WithAPIKeyHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, apiKeyHashKey, hash)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
