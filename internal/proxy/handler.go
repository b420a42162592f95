package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quanghm/workersai-gateway/internal/auth"
	"github.com/quanghm/workersai-gateway/internal/openai"
	"github.com/quanghm/workersai-gateway/internal/registry"
	"github.com/quanghm/workersai-gateway/internal/tokenizer"
	"github.com/quanghm/workersai-gateway/internal/translate"
	"github.com/quanghm/workersai-gateway/internal/usage"
	"github.com/quanghm/workersai-gateway/pkg/ratelimit"
)

type Handler struct {
	registry *registry.Registry
	invoker  *Invoker
	usage    usage.Store
	limiter  *ratelimit.Limiter // nil disables rate limiting
	tracer   trace.Tracer
	maxBody  int64
	started  int64
}

func NewHandler(reg *registry.Registry, invoker *Invoker, usageStore usage.Store, limiter *ratelimit.Limiter, tracer trace.Tracer, maxBody int64) *Handler {
	return &Handler{
		registry: reg,
		invoker:  invoker,
		usage:    usageStore,
		limiter:  limiter,
		tracer:   tracer,
		maxBody:  maxBody,
		started:  time.Now().Unix(),
	}
}

func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, apiErr := h.decodeChatRequest(w, r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	model, err := h.registry.Resolve(req.Model)
	if err != nil {
		writeError(w, errModelNotFound(req.Model))
		return
	}

	ctx, span := h.tracer.Start(ctx, "proxy.chat_completions")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", auth.GetRequestID(ctx)),
		attribute.String("model", model.PublicID),
		attribute.String("dialect", string(model.Dialect)),
		attribute.Bool("stream", req.Stream),
	)

	if h.limiter != nil {
		estimated := 1000
		if req.MaxTokens != nil && *req.MaxTokens > 0 {
			estimated = *req.MaxTokens
		}
		allowed, err := h.limiter.Allow(ctx, auth.GetAPIKeyHash(ctx), estimated)
		if err != nil || !allowed {
			w.Header().Set("Retry-After", "60")
			writeError(w, errRateLimited())
			return
		}
	}

	start := time.Now()
	raw, usedFallback, err := h.invoker.Invoke(ctx, model, req)
	if err != nil {
		writeError(w, errBackend(err))
		return
	}
	latencyMs := time.Since(start).Milliseconds()

	content := translate.Extract(raw, model.Dialect)

	completionID := "chatcmpl-" + uuid.New().String()
	created := time.Now().Unix()

	promptJSON, _ := json.Marshal(req.Messages)
	promptTokens := tokenizer.Estimate(string(promptJSON))
	completionTokens := tokenizer.Estimate(content)

	requestID := auth.GetRequestID(ctx)
	go func() {
		_ = h.usage.LogRequest(context.Background(), &usage.Record{
			RequestID:        requestID,
			Model:            model.PublicID,
			BackendModel:     model.BackendID,
			Dialect:          string(model.Dialect),
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Stream:           req.Stream,
			Fallback:         usedFallback,
			LatencyMs:        latencyMs,
		})
	}()

	if req.Stream {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, errInternal(fmt.Errorf("streaming unsupported by transport")))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		writeStream(w, flusher, content, model.PublicID, completionID, created)
		return
	}

	completion := openai.Completion{
		ID:      completionID,
		Object:  "chat.completion",
		Created: created,
		Model:   model.PublicID,
		Choices: []openai.Choice{
			{
				Index:        0,
				Message:      openai.ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(completion)
}

// decodeChatRequest parses the body and validates the messages field.
// Messages are decoded separately from the rest of the request so that a
// missing, non-array, or empty list maps to invalid_parameter rather than a
// generic decode failure.
func (h *Handler) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*openai.ChatRequest, *apiError) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var wire struct {
		openai.ChatRequest
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errPayloadTooLarge()
		}
		return nil, errInternal(fmt.Errorf("malformed request body: %w", err))
	}

	req := wire.ChatRequest
	if len(wire.Messages) == 0 || string(wire.Messages) == "null" {
		return nil, errInvalidParameter("messages is required and must be a non-empty array")
	}
	if err := json.Unmarshal(wire.Messages, &req.Messages); err != nil {
		return nil, errInvalidParameter("messages must be an array of role/content objects")
	}
	if len(req.Messages) == 0 {
		return nil, errInvalidParameter("messages must not be empty")
	}

	return &req, nil
}

func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	models := h.registry.List()
	list := openai.ModelList{Object: "list", Data: make([]openai.ModelInfo, 0, len(models))}
	for _, m := range models {
		list.Data = append(list.Data, openai.ModelInfo{
			ID:      m.PublicID,
			Object:  "model",
			Created: h.started,
			OwnedBy: ownerOf(m.BackendID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"models":    h.registry.IDs(),
	})
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := now.AddDate(0, 0, -30) // Default: last 30 days
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeError(w, errInvalidParameter("invalid 'from' date format (use RFC3339)"))
			return
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		var err error
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeError(w, errInvalidParameter("invalid 'to' date format (use RFC3339)"))
			return
		}
	}

	records, err := h.usage.GetRecent(r.Context(), from, to)
	if err != nil {
		writeError(w, errInternal(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_requests": len(records),
		"records":        records,
		"from":           from,
		"to":             to,
	})
}

// ownerOf derives the owned_by field from the backend catalog id, e.g.
// "@cf/meta/llama-3.1-8b-instruct" -> "meta".
func ownerOf(backendID string) string {
	parts := strings.Split(strings.TrimPrefix(backendID, "@cf/"), "/")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "cloudflare"
}
