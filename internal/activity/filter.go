// Package activity decides which issue comments count as human activity.
package activity

import "time"

// Filter screens comment authors against a set of known automation accounts.
type Filter struct {
	bots map[string]struct{}
}

// NewFilter builds a filter over the given bot account names. Matching is
// exact; there is no pattern expansion for names like "github-actions[bot]".
func NewFilter(bots []string) *Filter {
	set := make(map[string]struct{}, len(bots))
	for _, b := range bots {
		set[b] = struct{}{}
	}
	return &Filter{bots: set}
}

// IsBot reports whether the author is a known automation account.
func (f *Filter) IsBot(author string) bool {
	_, ok := f.bots[author]
	return ok
}

// Meaningful reports whether a comment created at createdAt by author counts
// as meaningful activity for a window starting at since.
func (f *Filter) Meaningful(author string, createdAt, since time.Time) bool {
	return !createdAt.Before(since) && !f.IsBot(author)
}
