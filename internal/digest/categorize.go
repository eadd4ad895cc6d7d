package digest

import "time"

// Categorize assigns each candidate item to at most one category. Closed
// state wins over everything; creation inside the window beats updated; an
// item that is neither closed nor newly created needs at least one
// meaningful comment to land in Updated, otherwise it is dropped. Each
// category list keeps the input order.
//
// The window check reads the item timestamps directly, so the answer does
// not depend on which query surfaced the item.
func Categorize(items []CandidateItem, since time.Time) Partition {
	var p Partition
	for _, item := range items {
		switch {
		case item.State == "closed":
			p.Closed = append(p.Closed, item)
		case !item.CreatedAt.Before(since):
			p.NewlyOpened = append(p.NewlyOpened, item)
		case item.HasMeaningfulComment():
			p.Updated = append(p.Updated, item)
		}
	}
	return p
}
