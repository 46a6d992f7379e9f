package pocketlint

import "sort"

// SortItems returns a new slice holding items in display order. The sort is
// stable and pure: the input slice is never reordered, and the reconciler's
// append order is left untouched. Consumers reapply it on every render.
func SortItems(items []*Item, order SortOrder) []*Item {
	out := make([]*Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if order == OldestFirst {
			return lessFilename(out[i].Filename, out[j].Filename)
		}
		return lessFilename(out[j].Filename, out[i].Filename)
	})
	return out
}

// lessFilename orders time-based filename tokens. The tokens are decimal
// unix timestamps, so plain string comparison misorders tokens of different
// widths ("999" would sort after "1000"). Comparing length first keeps
// mixed-width tokens in numeric order.
func lessFilename(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
