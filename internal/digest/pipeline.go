// Package digest turns a window of GitHub issue activity into a Slack
// digest: search, dedupe, fetch, categorize, summarize, assemble.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/supportops/support-digest/internal/activity"
	"github.com/supportops/support-digest/internal/format"
)

// Request carries the per-run parameters resolved from configuration.
// Labels holds the full query label set with the product label first.
// Location must be non-nil; validation resolves it before a run starts.
type Request struct {
	Org          string
	Labels       []string
	Excluded     []string
	ProductLabel string
	ProductName  string
	Since        time.Time
	HoursBack    int
	Location     *time.Location
}

// Digest is the assembled message for one product run.
type Digest struct {
	Text     string
	Sections []DigestSection
}

// Pipeline wires the digest stages together for one product. The same
// worker bound applies to the fetch and summarize pools; Timeout caps each
// item's summarization.
type Pipeline struct {
	Source     Source
	Summarizer Summarizer
	Bots       *activity.Filter
	Workers    int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Run executes the full pipeline for one window. It returns nil when the
// window holds nothing to report; callers must not send anything in that
// case. Search failures abort the run, everything downstream degrades per
// item instead.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Digest, error) {
	start := time.Now()
	p.Logger.Info("gathering activity", "since", req.Since.Format(time.RFC3339), "org", req.Org)

	created, err := p.Source.CreatedSince(ctx, req.Org, req.Labels, req.Since)
	if err != nil {
		return nil, fmt.Errorf("searching created items: %w", err)
	}
	updated, err := p.Source.UpdatedSince(ctx, req.Org, req.Labels, req.Since)
	if err != nil {
		return nil, fmt.Errorf("searching updated items: %w", err)
	}

	merged := Dedupe(created, updated, req.Excluded)
	p.Logger.Debug("merged search results",
		"created", len(created), "updated", len(updated), "candidates", len(merged))
	if len(merged) == 0 {
		p.Logger.Info("no activity in window")
		return nil, nil
	}

	fetcher := &Fetcher{Source: p.Source, Bots: p.Bots, Workers: p.Workers, Logger: p.Logger}
	candidates := fetcher.FetchAll(ctx, merged, req.Since, req.ProductLabel)

	partition := Categorize(candidates, req.Since)
	p.Logger.Info("categorized items",
		"newly_opened", len(partition.NewlyOpened),
		"updated", len(partition.Updated),
		"closed", len(partition.Closed))
	if partition.Empty() {
		p.Logger.Info("no items passed filtering")
		return nil, nil
	}

	fanout := &Fanout{Summarizer: p.Summarizer, Workers: p.Workers, Timeout: p.Timeout, Logger: p.Logger}

	var sections []DigestSection
	for _, group := range []struct {
		category Category
		items    []CandidateItem
	}{
		{NewlyOpened, partition.NewlyOpened},
		{Updated, partition.Updated},
		{Closed, partition.Closed},
	} {
		if len(group.items) == 0 {
			continue
		}
		lines := fanout.Run(ctx, group.items, group.category)
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, DigestSection{Category: group.category, Lines: lines})
	}
	if len(sections) == 0 {
		p.Logger.Info("all summaries came back empty")
		return nil, nil
	}

	formatted := make([]format.Section, len(sections))
	for i, s := range sections {
		formatted[i] = format.Section{Title: s.Category.SectionTitle(), Lines: s.Lines}
	}
	header := format.Header(req.ProductName, req.HoursBack, req.Since, req.Location)
	text := format.Digest(header, formatted)

	p.Logger.Info("digest assembled",
		"sections", len(sections), "duration", time.Since(start).Round(time.Millisecond))
	return &Digest{Text: text, Sections: sections}, nil
}
