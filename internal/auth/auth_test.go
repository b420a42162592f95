package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quanghm/workersai-gateway/internal/openai"
)

func protected(t *testing.T, keys []string) (http.Handler, *bool) {
	t.Helper()
	reached := false
	mw := NewMiddleware(keys)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		if GetAPIKeyHash(r.Context()) == "" {
			t.Error("Expected api key hash in context")
		}
		if GetRequestID(r.Context()) == "" {
			t.Error("Expected request id in context")
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &reached
}

func TestMiddleware_MissingHeader(t *testing.T) {
	handler, reached := protected(t, []string{"secret"})

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if *reached {
		t.Error("Handler must not run without credentials")
	}

	var resp openai.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if resp.Error.Code != "unauthorized" {
		t.Errorf("Expected unauthorized code, got %q", resp.Error.Code)
	}
}

func TestMiddleware_WrongKey(t *testing.T) {
	handler, reached := protected(t, []string{"secret"})

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if *reached {
		t.Error("Handler must not run with a bad key")
	}
}

func TestMiddleware_ValidKey(t *testing.T) {
	handler, reached := protected(t, []string{"secret", "other"})

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer other")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !*reached {
		t.Error("Handler should have run")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}
