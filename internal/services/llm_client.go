package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrLLMTimeout marks a completion call that exceeded its deadline. The
// generator recovers from it by falling back to rule-based generation.
var ErrLLMTimeout = errors.New("llm completion timed out")

// HTTPCompletionClient calls a hosted completion endpoint over HTTP. The
// service treats the endpoint as an opaque text-in/text-out function.
type HTTPCompletionClient struct {
	url     string
	model   string
	apiKey  string
	timeout time.Duration
}

// NewHTTPCompletionClient creates a client for the configured completion
// endpoint. A zero timeout defaults to 30 seconds.
func NewHTTPCompletionClient(url, model, apiKey string, timeout time.Duration) *HTTPCompletionClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCompletionClient{url: url, model: model, apiKey: apiKey, timeout: timeout}
}

type completionRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Complete sends the prompt and returns the completion text. The call is
// bounded by the configured timeout.
func (c *HTTPCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestBody, err := json.Marshal(completionRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrLLMTimeout, c.timeout)
		}
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return completion.Text, nil
}
