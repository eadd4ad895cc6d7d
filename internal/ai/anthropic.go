package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/supportops/support-digest/internal/digest"
)

// AnthropicClient summarizes items through the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropicClient creates a new Anthropic API client. Extra request
// options (base URL, HTTP client) are mainly for tests.
func NewAnthropicClient(apiKey, model string, maxTokens int, logger *slog.Logger, opts ...option.RequestOption) *AnthropicClient {
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClient{
		client:    anthropic.NewClient(options...),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger,
	}
}

// Summarize generates one digest line for the item.
func (c *AnthropicClient) Summarize(ctx context.Context, item digest.CandidateItem, category digest.Category) (string, error) {
	payload, err := userPayload(item, category)
	if err != nil {
		return "", err
	}

	c.logger.Debug("summarizing item", "backend", "anthropic", "model", c.model, "item", item.Key(), "category", category)
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt(item, category)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(payload)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	c.logger.Debug("summarization complete", "item", item.Key(),
		"input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens)
	return strings.TrimSpace(sb.String()), nil
}
