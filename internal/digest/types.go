package digest

import (
	"context"
	"fmt"
	"time"
)

// TrackedItem is one issue snapshot as returned by a search query.
// Identity is the (Repo, Number) pair; Repo is the repository short name.
// JSON tags define the summarizer payload contract.
type TrackedItem struct {
	Title        string    `json:"title"`
	Number       int       `json:"number"`
	Repo         string    `json:"repo"`
	Labels       []string  `json:"labels"`
	Body         string    `json:"body"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	State        string    `json:"state"`
	ProductLabel string    `json:"product_label"`

	// Owner is the account the repository lives under. It is needed to
	// route comment lookups and is not part of the summarizer payload.
	Owner string `json:"-"`
}

// Key returns the run-unique identity for the item, e.g. "repo#42".
func (t TrackedItem) Key() string {
	return fmt.Sprintf("%s#%d", t.Repo, t.Number)
}

// SlackLink renders the item as a Slack hyperlink, e.g. <url|repo#42>.
func (t TrackedItem) SlackLink() string {
	return fmt.Sprintf("<%s|%s#%d>", t.URL, t.Repo, t.Number)
}

// CommentRecord is a single issue comment. InWindow and Meaningful are
// derived during fetch; sources return records with both flags unset.
type CommentRecord struct {
	Type       string    `json:"type"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	InWindow   bool      `json:"is_recent_activity"`
	Meaningful bool      `json:"is_meaningful"`
}

// CandidateItem is a tracked item that passed the inclusion rule, together
// with its annotated comment history. Built once per item per run and never
// mutated afterwards.
type CandidateItem struct {
	TrackedItem
	Comments        []CommentRecord `json:"comments"`
	CreatedInWindow bool            `json:"-"`
}

// HasMeaningfulComment reports whether any comment is in-window activity
// from a non-bot author.
func (c CandidateItem) HasMeaningfulComment() bool {
	for _, cm := range c.Comments {
		if cm.Meaningful {
			return true
		}
	}
	return false
}

// Category is the terminal classification of a candidate item. The string
// value is the category name used in summarizer payloads and logs.
type Category string

const (
	NewlyOpened Category = "newly_opened"
	Updated     Category = "updated"
	Closed      Category = "closed"
)

// SectionTitle returns the digest heading for the category.
func (c Category) SectionTitle() string {
	switch c {
	case NewlyOpened:
		return "Newly Opened Issues"
	case Updated:
		return "Updated Issues"
	case Closed:
		return "Closed Issues"
	}
	return string(c)
}

// Partition holds the disjoint category lists produced by Categorize, each
// in categorization order.
type Partition struct {
	NewlyOpened []CandidateItem
	Updated     []CandidateItem
	Closed      []CandidateItem
}

// Total returns the number of items across all categories.
func (p Partition) Total() int {
	return len(p.NewlyOpened) + len(p.Updated) + len(p.Closed)
}

// Empty reports whether no category has items.
func (p Partition) Empty() bool {
	return p.Total() == 0
}

// DigestSection is one category's ordered, rendered summary lines.
type DigestSection struct {
	Category Category
	Lines    []string
}

// Source supplies issue snapshots and comment histories from the tracker.
// Comment retrieval is not time-filtered; window annotation is the
// pipeline's job.
type Source interface {
	CreatedSince(ctx context.Context, org string, labels []string, since time.Time) ([]TrackedItem, error)
	UpdatedSince(ctx context.Context, org string, labels []string, since time.Time) ([]TrackedItem, error)
	Comments(ctx context.Context, item TrackedItem) ([]CommentRecord, error)
}

// Summarizer turns one candidate item into a single digest line.
type Summarizer interface {
	Summarize(ctx context.Context, item CandidateItem, category Category) (string, error)
}
