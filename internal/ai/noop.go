package ai

import (
	"context"
	"fmt"

	"github.com/supportops/support-digest/internal/digest"
)

// NoopSummarizer renders digest lines without calling a model. It stands in
// when summarization is disabled.
type NoopSummarizer struct{}

// NewNoopSummarizer creates a new no-op summarizer
func NewNoopSummarizer() *NoopSummarizer {
	return &NoopSummarizer{}
}

// Summarize returns the bare link-and-title line for the item.
func (n *NoopSummarizer) Summarize(_ context.Context, item digest.CandidateItem, _ digest.Category) (string, error) {
	return fmt.Sprintf("• %s · *%s*", item.SlackLink(), item.Title), nil
}
