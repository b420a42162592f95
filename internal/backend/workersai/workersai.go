// Package workersai is the HTTP client for the Workers AI REST surface. One
// inference call maps to one POST against the account-scoped run endpoint.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quanghm/workersai-gateway/internal/backend"
)

type Client struct {
	baseURL   string
	accountID string
	apiToken  string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// envelope is the REST wrapper around every run result. The inner result is
// kept raw: its shape varies per model and is probed downstream.
type envelope struct {
	Result  json.RawMessage `json:"result"`
	Success bool            `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func New(baseURL, accountID, apiToken string) backend.Runner {
	settings := gobreaker.Settings{
		Name:        "workersai",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &Client{
		baseURL:   baseURL,
		accountID: accountID,
		apiToken:  apiToken,
		http:      &http.Client{Timeout: 120 * time.Second},
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (c *Client) Run(ctx context.Context, backendModelID string, payload any) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.run(ctx, backendModelID, payload)
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (c *Client) run(ctx context.Context, backendModelID string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, backendModelID)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("workers ai error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}

	if !env.Success {
		if len(env.Errors) > 0 {
			return nil, fmt.Errorf("workers ai error %d: %s", env.Errors[0].Code, env.Errors[0].Message)
		}
		return nil, fmt.Errorf("workers ai call failed for model %s", backendModelID)
	}

	return env.Result, nil
}
