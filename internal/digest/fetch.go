package digest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/supportops/support-digest/internal/activity"
)

// Fetcher hydrates deduplicated search snapshots into candidate items,
// fanning comment retrieval out across a bounded worker pool.
type Fetcher struct {
	Source  Source
	Bots    *activity.Filter
	Workers int
	Logger  *slog.Logger
}

// FetchAll builds a candidate item for every tracked item that passes the
// inclusion rule: created inside the window, or carrying at least one
// meaningful comment. Results keep the input order regardless of worker
// completion order. A failed comment lookup counts as an empty history and
// never fails the run.
func (f *Fetcher) FetchAll(ctx context.Context, items []TrackedItem, since time.Time, productLabel string) []CandidateItem {
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

	results := make([]*CandidateItem, len(items))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var completed atomic.Int32

	for i, item := range items {
		wg.Add(1)
		go func(i int, item TrackedItem) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = f.process(ctx, item, since, productLabel)

			done := completed.Add(1)
			f.Logger.Debug("processed item", "item", item.Key(), "completed", done, "total", len(items))
		}(i, item)
	}
	wg.Wait()

	candidates := make([]CandidateItem, 0, len(items))
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}
	return candidates
}

// process annotates one item's comment history and applies the inclusion
// rule. Comments are only fetched when the item was updated inside the
// window; anything older cannot carry in-window activity.
func (f *Fetcher) process(ctx context.Context, item TrackedItem, since time.Time, productLabel string) *CandidateItem {
	item.ProductLabel = productLabel

	createdInWindow := !item.CreatedAt.Before(since)
	updatedInWindow := !item.UpdatedAt.Before(since)

	var comments []CommentRecord
	if updatedInWindow {
		fetched, err := f.Source.Comments(ctx, item)
		if err != nil {
			f.Logger.Error("fetching comments failed", "item", item.Key(), "error", err)
		} else {
			comments = make([]CommentRecord, 0, len(fetched))
			for _, c := range fetched {
				c.InWindow = !c.CreatedAt.Before(since)
				c.Meaningful = f.Bots.Meaningful(c.Author, c.CreatedAt, since)
				comments = append(comments, c)
			}
		}
	}

	candidate := CandidateItem{
		TrackedItem:     item,
		Comments:        comments,
		CreatedInWindow: createdInWindow,
	}

	switch {
	case createdInWindow:
		f.Logger.Debug("including item", "item", item.Key(), "reason", "created in window")
	case candidate.HasMeaningfulComment():
		f.Logger.Debug("including item", "item", item.Key(), "reason", "meaningful recent activity")
	default:
		f.Logger.Debug("skipping item", "item", item.Key(), "reason", "no meaningful recent activity")
		return nil
	}
	return &candidate
}
