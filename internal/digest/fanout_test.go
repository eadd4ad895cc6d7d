package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeSummarizer struct {
	mu    sync.Mutex
	calls []string
	seen  map[string]Category

	lines map[string]string
	errs  map[string]error
	delay map[string]time.Duration
	block bool
}

func (s *fakeSummarizer) Summarize(ctx context.Context, item CandidateItem, category Category) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, item.Key())
	if s.seen == nil {
		s.seen = make(map[string]Category)
	}
	s.seen[item.Key()] = category
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if d := s.delay[item.Key()]; d > 0 {
		time.Sleep(d)
	}
	if err := s.errs[item.Key()]; err != nil {
		return "", err
	}
	if line, ok := s.lines[item.Key()]; ok {
		return line, nil
	}
	return "• " + item.SlackLink() + " · *" + item.Title + "*", nil
}

func candidate(n int, title string) CandidateItem {
	return CandidateItem{TrackedItem: TrackedItem{
		Title:  title,
		Number: n,
		Repo:   "api",
		URL:    fmt.Sprintf("https://github.com/acme/api/issues/%d", n),
	}}
}

func TestFanoutKeepsInputOrder(t *testing.T) {
	items := []CandidateItem{
		candidate(1, "first"),
		candidate(2, "second"),
		candidate(3, "third"),
	}
	summarizer := &fakeSummarizer{
		delay: map[string]time.Duration{
			"api#1": 30 * time.Millisecond,
			"api#2": 20 * time.Millisecond,
			"api#3": 0,
		},
	}
	f := &Fanout{Summarizer: summarizer, Workers: 3, Timeout: time.Second, Logger: testLogger()}

	lines := f.Run(context.Background(), items, NewlyOpened)

	want := []string{
		"• <https://github.com/acme/api/issues/1|api#1> · *first*",
		"• <https://github.com/acme/api/issues/2|api#2> · *second*",
		"• <https://github.com/acme/api/issues/3|api#3> · *third*",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFanoutFailureYieldsFallbackLine(t *testing.T) {
	items := []CandidateItem{
		candidate(1, "healthy"),
		candidate(2, "broken"),
		candidate(3, "also healthy"),
	}
	summarizer := &fakeSummarizer{
		errs: map[string]error{"api#2": errors.New("model unavailable")},
	}
	f := &Fanout{Summarizer: summarizer, Workers: 2, Timeout: time.Second, Logger: testLogger()}

	lines := f.Run(context.Background(), items, Updated)

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	want := "• <https://github.com/acme/api/issues/2|api#2> · *broken* — [Summarization failed]"
	if lines[1] != want {
		t.Errorf("fallback line = %q, want %q", lines[1], want)
	}
}

func TestFanoutDropsEmptySummaries(t *testing.T) {
	items := []CandidateItem{
		candidate(1, "kept"),
		candidate(2, "skipped"),
	}
	summarizer := &fakeSummarizer{
		lines: map[string]string{
			"api#1": "• kept line",
			"api#2": "",
		},
	}
	f := &Fanout{Summarizer: summarizer, Workers: 2, Timeout: time.Second, Logger: testLogger()}

	lines := f.Run(context.Background(), items, Closed)

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0] != "• kept line" {
		t.Errorf("got %q", lines[0])
	}
}

func TestFanoutTimesOutSlowItems(t *testing.T) {
	items := []CandidateItem{candidate(1, "stuck")}
	summarizer := &fakeSummarizer{block: true}
	f := &Fanout{Summarizer: summarizer, Workers: 1, Timeout: 25 * time.Millisecond, Logger: testLogger()}

	start := time.Now()
	lines := f.Run(context.Background(), items, NewlyOpened)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("run did not respect the per-item timeout, took %v", elapsed)
	}
	if len(lines) != 1 {
		t.Fatalf("expected fallback line, got %d lines", len(lines))
	}
	want := "• <https://github.com/acme/api/issues/1|api#1> · *stuck* — [Summarization failed]"
	if lines[0] != want {
		t.Errorf("got %q, want %q", lines[0], want)
	}
}

func TestFanoutNoItems(t *testing.T) {
	f := &Fanout{Summarizer: &fakeSummarizer{}, Workers: 2, Timeout: time.Second, Logger: testLogger()}
	if lines := f.Run(context.Background(), nil, NewlyOpened); lines != nil {
		t.Errorf("expected nil lines, got %v", lines)
	}
}
