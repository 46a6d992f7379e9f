package pocketlint

import "time"

// Item is a single journaled photo entry. Filename is the item's identity:
// a time-based token assigned at creation that doubles as the primary key of
// the remote record, the stem of the blob path, and the local cache key. It
// never changes for the lifetime of the item.
type Item struct {
	Filename    string
	ImageURL    string
	Image       []byte // encoded image bytes, nil until loaded from cache or fetched
	Title       string
	TextContent string
	Date        time.Time
	Latitude    float64
	Longitude   float64
}

// HasLocation reports whether a location was saved with the item.
// (0, 0) is the "no location" sentinel.
func (it *Item) HasLocation() bool {
	return it.Latitude != 0 || it.Longitude != 0
}

// Record is the wire form of an item as stored in the remote record
// collection, keyed there by the item's filename token.
type Record struct {
	Image       string  `json:"image"`
	Date        string  `json:"date"`
	Title       string  `json:"title"`
	TextContent string  `json:"textContent"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Snapshot is a full point-in-time read of a user's record collection,
// keyed by filename.
type Snapshot map[string]Record

// ChangeKind classifies an incremental item-list update.
type ChangeKind int

const (
	// Added means a new item was appended to the end of the list.
	Added ChangeKind = iota
	// Updated means an existing item was patched in place.
	Updated
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change is one incremental view update emitted by the reconciler.
type Change struct {
	Kind     ChangeKind
	Filename string
}

// SortOrder selects how the item list is ordered for display.
type SortOrder string

const (
	NewestFirst SortOrder = "newestFirst"
	OldestFirst SortOrder = "oldestFirst"
)

// Settings are the per-user preferences read at session start and written
// back at session end.
type Settings struct {
	SortOrder     SortOrder `json:"sortOrder"`
	TextDetection bool      `json:"textDetection"`
	ItemDetection bool      `json:"itemDetection"`
	SaveLocation  bool      `json:"saveLocation"`
	ItemSize      int       `json:"itemSize"`
}

// DefaultSettings returns the settings used before a user has saved any.
func DefaultSettings() Settings {
	return Settings{
		SortOrder:    NewestFirst,
		SaveLocation: true,
		ItemSize:     1,
	}
}
