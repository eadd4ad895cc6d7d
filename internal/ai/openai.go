// Package ai implements the summarization backends for digest lines.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/supportops/support-digest/internal/digest"
)

// DefaultOpenAIBaseURL is the public OpenAI API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

const (
	temperature = 0.2
	maxRetries  = 3
	baseDelay   = 1 * time.Second
)

// OpenAIClient summarizes items through the OpenAI chat completions API.
type OpenAIClient struct {
	HTTP      *http.Client
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	Logger    *slog.Logger
}

// NewOpenAIClient creates a new OpenAI API client.
func NewOpenAIClient(baseURL, model, apiKey string, maxTokens int, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		HTTP:      &http.Client{Timeout: 60 * time.Second},
		BaseURL:   baseURL,
		Model:     model,
		APIKey:    apiKey,
		MaxTokens: maxTokens,
		Logger:    logger,
	}
}

// chatCompletionRequest represents the OpenAI request format
type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse represents the OpenAI response format
type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message message `json:"message"`
}

// Summarize generates one digest line for the item.
func (c *OpenAIClient) Summarize(ctx context.Context, item digest.CandidateItem, category digest.Category) (string, error) {
	payload, err := userPayload(item, category)
	if err != nil {
		return "", err
	}

	c.Logger.Debug("summarizing item", "backend", "openai", "model", c.Model, "item", item.Key(), "category", category)
	request := chatCompletionRequest{
		Model:       c.Model,
		Temperature: temperature,
		MaxTokens:   c.MaxTokens,
		Messages: []message{
			{Role: "system", Content: systemPrompt(item, category)},
			{Role: "user", Content: payload},
		},
	}

	summary, err := c.callAPI(ctx, request)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// callAPI makes the HTTP request with retry logic. Rate limits honor the
// Retry-After header; other failures return immediately.
func (c *OpenAIClient) callAPI(ctx context.Context, request chatCompletionRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.1) // 10% jitter
			c.Logger.Debug("OpenAI API retry backoff", "attempt", attempt, "delay", delay+jitter)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay + jitter):
			}
		}

		response, err := c.makeHTTPRequest(ctx, request)
		if err != nil {
			lastErr = err

			if httpErr, ok := err.(*HTTPError); ok && httpErr.StatusCode == http.StatusTooManyRequests {
				c.Logger.Debug("OpenAI API rate limited", "attempt", attempt+1)
				if retryAfter := httpErr.Headers.Get("Retry-After"); retryAfter != "" {
					if seconds, parseErr := strconv.Atoi(retryAfter); parseErr == nil {
						select {
						case <-ctx.Done():
							return "", ctx.Err()
						case <-time.After(time.Duration(seconds) * time.Second):
						}
					}
				}
				continue
			}

			return "", fmt.Errorf("OpenAI API request failed: %w", err)
		}

		if len(response.Choices) == 0 {
			return "", fmt.Errorf("OpenAI API returned empty response")
		}
		return response.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("OpenAI API failed after %d retries: %w", maxRetries, lastErr)
}

// makeHTTPRequest performs the actual HTTP request
func (c *OpenAIClient) makeHTTPRequest(ctx context.Context, request chatCompletionRequest) (*chatCompletionResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("User-Agent", "support-digest/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Headers:    resp.Header,
		}
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}

// HTTPError represents an HTTP error response
type HTTPError struct {
	StatusCode int
	Body       string
	Headers    http.Header
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
