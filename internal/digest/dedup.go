package digest

// Dedupe merges the created and updated search results into one list keyed
// by item identity. The created list is inserted first; when both queries
// return the same item the later snapshot replaces the earlier one in
// place, so the merged list keeps first-sighting order while carrying the
// freshest field values. Items from excluded repositories are skipped.
func Dedupe(created, updated []TrackedItem, excluded []string) []TrackedItem {
	skip := make(map[string]struct{}, len(excluded))
	for _, repo := range excluded {
		skip[repo] = struct{}{}
	}

	index := make(map[string]int)
	var merged []TrackedItem

	insert := func(items []TrackedItem) {
		for _, item := range items {
			if _, ok := skip[item.Repo]; ok {
				continue
			}
			key := item.Key()
			if at, ok := index[key]; ok {
				merged[at] = item
				continue
			}
			index[key] = len(merged)
			merged = append(merged, item)
		}
	}

	insert(created)
	insert(updated)
	return merged
}
