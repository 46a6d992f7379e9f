package pocketlint

import "time"

// RecordDateLayout is the wire format for the date field, e.g.
// "2018-05-11 14:30:00 GMT+10:00". Every record producer and consumer
// formats with this exact pattern.
const RecordDateLayout = "2006-01-02 15:04:05 GMT-07:00"

// recordDateLayoutAbbrev accepts dates whose zone is a bare abbreviation
// with no offset, e.g. "2018-01-01 00:00:00 GMT".
const recordDateLayoutAbbrev = "2006-01-02 15:04:05 MST"

// ParseRecordDate parses a wire-format date string.
func ParseRecordDate(s string) (time.Time, error) {
	t, err := time.Parse(RecordDateLayout, s)
	if err == nil {
		return t, nil
	}
	if t, err2 := time.Parse(recordDateLayoutAbbrev, s); err2 == nil {
		return t, nil
	}
	return time.Time{}, err
}

// FormatRecordDate renders t in the wire format.
func FormatRecordDate(t time.Time) string {
	return t.Format(RecordDateLayout)
}

// ParseRecord validates a wire record and builds the in-memory item for it.
// The image is not attached here; the reconciler resolves it through the
// cache or the blob store. Invalid records yield a *MalformedRecordError
// instead of aborting the sync pass.
func ParseRecord(filename string, rec Record) (*Item, error) {
	if filename == "" {
		return nil, &MalformedRecordError{Filename: filename, Field: "filename"}
	}
	if rec.Image == "" {
		return nil, &MalformedRecordError{Filename: filename, Field: "image"}
	}
	if rec.Date == "" {
		return nil, &MalformedRecordError{Filename: filename, Field: "date"}
	}
	date, err := ParseRecordDate(rec.Date)
	if err != nil {
		return nil, &MalformedRecordError{Filename: filename, Field: "date", Err: err}
	}
	return &Item{
		Filename:    filename,
		ImageURL:    rec.Image,
		Title:       rec.Title,
		TextContent: rec.TextContent,
		Date:        date,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
	}, nil
}

// RecordFromItem renders an item back into its wire form.
func RecordFromItem(it *Item) Record {
	return Record{
		Image:       it.ImageURL,
		Date:        FormatRecordDate(it.Date),
		Title:       it.Title,
		TextContent: it.TextContent,
		Latitude:    it.Latitude,
		Longitude:   it.Longitude,
	}
}
