package activity

import (
	"testing"
	"time"
)

func TestFilterIsBot(t *testing.T) {
	f := NewFilter([]string{"github-actions[bot]", "dependabot[bot]"})

	tests := []struct {
		author string
		want   bool
	}{
		{"github-actions[bot]", true},
		{"dependabot[bot]", true},
		{"octocat", false},
		{"GitHub-Actions[bot]", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := f.IsBot(tt.author); got != tt.want {
			t.Errorf("IsBot(%q) = %v, want %v", tt.author, got, tt.want)
		}
	}
}

func TestFilterMeaningful(t *testing.T) {
	f := NewFilter([]string{"github-actions[bot]"})
	since := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		author    string
		createdAt time.Time
		want      bool
	}{
		{"human comment in window", "octocat", since.Add(2 * time.Hour), true},
		{"human comment at window start", "octocat", since, true},
		{"human comment before window", "octocat", since.Add(-time.Minute), false},
		{"bot comment in window", "github-actions[bot]", since.Add(2 * time.Hour), false},
		{"bot comment before window", "github-actions[bot]", since.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Meaningful(tt.author, tt.createdAt, since); got != tt.want {
				t.Errorf("Meaningful(%q, %v) = %v, want %v", tt.author, tt.createdAt, got, tt.want)
			}
		})
	}
}
