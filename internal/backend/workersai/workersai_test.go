package workersai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRun_Mock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/accounts/acct-1/ai/run/@cf/meta/llama-3.1-8b-instruct") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"result":  map[string]string{"response": "Hello from the edge!"},
			"success": true,
		})
	}))
	defer server.Close()

	c := New(server.URL, "acct-1", "tok-1")

	raw, err := c.Run(context.Background(), "@cf/meta/llama-3.1-8b-instruct", map[string]string{"prompt": "hi"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result["response"] != "Hello from the edge!" {
		t.Errorf("Expected unwrapped result, got %s", raw)
	}
}

func TestRun_EnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 5007, "message": "no such model"}},
		})
	}))
	defer server.Close()

	c := New(server.URL, "acct-1", "tok-1")

	_, err := c.Run(context.Background(), "@cf/none/nope", map[string]string{"prompt": "hi"})
	if err == nil {
		t.Fatal("Expected error for unsuccessful envelope")
	}
	if !strings.Contains(err.Error(), "no such model") {
		t.Errorf("Expected backend error message, got %v", err)
	}
}

func TestRun_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusForbidden)
	}))
	defer server.Close()

	c := New(server.URL, "acct-1", "tok-1")

	_, err := c.Run(context.Background(), "@cf/meta/llama-3.1-8b-instruct", map[string]string{"prompt": "hi"})
	if err == nil {
		t.Fatal("Expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Errorf("Expected status in error, got %v", err)
	}
}
