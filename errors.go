package pocketlint

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record, blob, or cache entry does not
// exist. A cache lookup miss is expected and drives the fetch path; it is
// never surfaced to the user as an error.
var ErrNotFound = errors.New("pocketlint: not found")

// MalformedRecordError reports a remote record with a missing required
// field or an unparsable date. The record is skipped; the rest of the sync
// pass continues.
type MalformedRecordError struct {
	Filename string
	Field    string
	Err      error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record %q: field %s: %v", e.Filename, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record %q: missing field %s", e.Filename, e.Field)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// TransportError reports a failed snapshot, download, or upload. The
// operation is abandoned for that item and not retried automatically.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CacheIOError reports a local cache read or write failure. Callers treat
// it as a miss and fall back to re-fetching from remote on the next pass.
type CacheIOError struct {
	Filename string
	Op       string
	Err      error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Filename, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }
