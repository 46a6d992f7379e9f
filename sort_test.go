package pocketlint

import "testing"

func itemsWithFilenames(names ...string) []*Item {
	items := make([]*Item, len(names))
	for i, n := range names {
		items[i] = &Item{Filename: n}
	}
	return items
}

func filenamesOf(items []*Item) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Filename
	}
	return names
}

func TestSortNewestFirst(t *testing.T) {
	items := itemsWithFilenames("999", "1000")
	got := filenamesOf(SortItems(items, NewestFirst))
	if got[0] != "1000" || got[1] != "999" {
		t.Errorf("NewestFirst = %v, want [1000 999]", got)
	}
}

func TestSortOldestFirst(t *testing.T) {
	items := itemsWithFilenames("1526018400", "1526018300", "1526018500")
	got := filenamesOf(SortItems(items, OldestFirst))
	want := []string{"1526018300", "1526018400", "1526018500"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("OldestFirst = %v, want %v", got, want)
		}
	}
}

func TestSortOrdersAreExactReverses(t *testing.T) {
	items := itemsWithFilenames("1526018400", "999", "1526018500", "1000", "1526018300")
	newest := filenamesOf(SortItems(items, NewestFirst))
	oldest := filenamesOf(SortItems(items, OldestFirst))
	for i := range newest {
		if newest[i] != oldest[len(oldest)-1-i] {
			t.Fatalf("NewestFirst %v is not the reverse of OldestFirst %v", newest, oldest)
		}
	}
}

func TestSortMixedWidthTokensAreNumeric(t *testing.T) {
	// Plain lexicographic order would put "999" before "1000" in a
	// descending sort; token order must be numeric.
	items := itemsWithFilenames("1000", "999", "10000")
	got := filenamesOf(SortItems(items, NewestFirst))
	want := []string{"10000", "1000", "999"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NewestFirst = %v, want %v", got, want)
		}
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	items := itemsWithFilenames("999", "1000", "500")
	SortItems(items, NewestFirst)
	got := filenamesOf(items)
	want := []string{"999", "1000", "500"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("input reordered to %v, want %v", got, want)
		}
	}
}
