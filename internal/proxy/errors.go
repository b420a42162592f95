package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quanghm/workersai-gateway/internal/openai"
)

// apiError is the single error currency of the handler: every failure is
// classified at the point of detection and mapped to a status and wire code
// exactly once, at the top of the handler.
type apiError struct {
	Status  int
	Type    string
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return e.Message
}

func errInvalidParameter(message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Type:    "invalid_request_error",
		Code:    "invalid_parameter",
		Message: message,
	}
}

func errModelNotFound(model string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Type:    "invalid_request_error",
		Code:    "model_not_found",
		Message: fmt.Sprintf("model %q is not supported", model),
	}
}

func errPayloadTooLarge() *apiError {
	return &apiError{
		Status:  http.StatusRequestEntityTooLarge,
		Type:    "invalid_request_error",
		Code:    "payload_too_large",
		Message: "request body exceeds the maximum allowed size",
	}
}

func errBackend(err error) *apiError {
	return &apiError{
		Status:  http.StatusInternalServerError,
		Type:    "server_error",
		Code:    "backend_error",
		Message: fmt.Sprintf("backend inference failed: %v", err),
	}
}

func errInternal(err error) *apiError {
	return &apiError{
		Status:  http.StatusInternalServerError,
		Type:    "server_error",
		Code:    "internal_error",
		Message: fmt.Sprintf("internal error: %v", err),
	}
}

func errRateLimited() *apiError {
	return &apiError{
		Status:  http.StatusTooManyRequests,
		Type:    "rate_limit_error",
		Code:    "rate_limit_exceeded",
		Message: "rate limit exceeded",
	}
}

func errNotFound() *apiError {
	return &apiError{
		Status:  http.StatusNotFound,
		Type:    "invalid_request_error",
		Code:    "not_found",
		Message: "no such route",
	}
}

func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apiError)
	if !ok {
		apiErr = errInternal(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(openai.ErrorResponse{Error: openai.ErrorDetail{
		Message: apiErr.Message,
		Type:    apiErr.Type,
		Code:    apiErr.Code,
	}})
}
