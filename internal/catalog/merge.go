package catalog

// dedupeByID drops repeated ids from a fetched list, keeping the first
// occurrence. A refreshed list fully replaces the cached one: items the
// Automator no longer reports disappear, and an item keeps its identity
// across refreshes through its id alone.
func dedupeByID(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
