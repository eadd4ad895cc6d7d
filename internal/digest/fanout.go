package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// FallbackLine is the digest line used when summarization fails for an
// item. It carries the same link and title as a real summary so the item
// still shows up in its section.
func FallbackLine(item TrackedItem) string {
	return fmt.Sprintf("• %s · *%s* — [Summarization failed]", item.SlackLink(), item.Title)
}

// Fanout summarizes one category's items across a bounded worker pool.
// Every item gets its own timeout and failure domain: a slow or failing
// summarization yields a fallback line without disturbing the rest of the
// batch.
type Fanout struct {
	Summarizer Summarizer
	Workers    int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Run returns one digest line per item in input order, regardless of which
// worker finished first. Summaries that come back empty are dropped.
func (f *Fanout) Run(ctx context.Context, items []CandidateItem, category Category) []string {
	if len(items) == 0 {
		return nil
	}

	workers := f.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]string, len(items))
	keep := make([]bool, len(items))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var completed atomic.Int32

	for i, item := range items {
		wg.Add(1)
		go func(i int, item CandidateItem) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i], keep[i] = f.summarizeOne(ctx, item, category)

			done := completed.Add(1)
			f.Logger.Debug("summarized item", "category", category, "item", item.Key(), "completed", done, "total", len(items))
		}(i, item)
	}
	wg.Wait()

	lines := make([]string, 0, len(items))
	for i, line := range results {
		if keep[i] {
			lines = append(lines, line)
		}
	}
	return lines
}

func (f *Fanout) summarizeOne(ctx context.Context, item CandidateItem, category Category) (string, bool) {
	sctx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	line, err := f.Summarizer.Summarize(sctx, item, category)
	if err != nil {
		f.Logger.Error("summarization failed", "category", category, "item", item.Key(), "error", err)
		return FallbackLine(item.TrackedItem), true
	}
	if line == "" {
		return "", false
	}
	return line, true
}
