package pocketlint

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// BlobSource is the download half of a blob store; it is all the
// reconciler needs from the remote side.
type BlobSource interface {
	Download(ctx context.Context, url string, maxSize int64) ([]byte, error)
}

// eventBuffer sizes the change feed. A full feed means the subscriber has
// fallen badly behind; further events are dropped with a warning rather
// than blocking the sync path.
const eventBuffer = 256

// Reconciler owns the canonical in-memory item list for one view session
// and merges remote snapshots into it. For each record in a snapshot it
// decides: new item (resolve image via cache, else fetch from the blob
// store, then append), changed item (patch title/textContent in place), or
// unchanged (no-op). Incremental updates are emitted on the change feed.
//
// Reconcile itself only blocks on cache reads; cache-miss blob fetches run
// asynchronously and append their item when they complete, so Added events
// mean "insert at current end of list", never a snapshot position.
type Reconciler struct {
	cache       *ImageCache
	blobs       BlobSource
	logger      *slog.Logger
	maxTransfer int64

	mu      sync.Mutex
	items   []*Item
	index   map[string]*Item
	pending map[string]struct{} // filenames with an in-flight blob fetch
	closed  bool
	events  chan Change
	fetches sync.WaitGroup
}

// NewReconciler creates a reconciler for one view session.
func NewReconciler(cache *ImageCache, blobs BlobSource, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		cache:       cache,
		blobs:       blobs,
		logger:      logger,
		maxTransfer: MaxTransferSize,
		index:       make(map[string]*Item),
		pending:     make(map[string]struct{}),
		events:      make(chan Change, eventBuffer),
	}
}

// Events is the change feed views subscribe to. It carries every Added and
// Updated event, including those produced by asynchronous fetches, and is
// closed by Close.
func (r *Reconciler) Events() <-chan Change { return r.events }

// Items returns a copy of the current item list in append order. Display
// ordering is SortItems' job, applied at render time.
func (r *Reconciler) Items() []*Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Item, len(r.items))
	copy(out, r.items)
	return out
}

// Reconcile merges a remote snapshot into the item list. The returned
// change set covers synchronously applied changes; cache-miss items arrive
// later as Added events on the change feed once their blob fetch completes.
// Malformed records and failed fetches are logged and skipped for this
// pass, never fatal to the sync.
func (r *Reconciler) Reconcile(ctx context.Context, snap Snapshot) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	var changes []Change
	for filename, rec := range snap {
		if existing, ok := r.index[filename]; ok {
			if ch, updated := r.patchLocked(existing, rec); updated {
				changes = append(changes, ch)
			}
			continue
		}
		if _, ok := r.pending[filename]; ok {
			continue
		}

		item, err := ParseRecord(filename, rec)
		if err != nil {
			r.logger.Warn("reconcile: skipping malformed record",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			continue
		}

		data, err := r.cache.Load(filename)
		switch {
		case err == nil:
			item.Image = data
			changes = append(changes, r.appendLocked(item))
		case errors.Is(err, ErrNotFound):
			r.fetchLocked(ctx, item)
		default:
			// A cache read failure counts as a miss; the entry is
			// restored from remote like any other.
			r.logger.Warn("reconcile: cache read failed, refetching",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			r.fetchLocked(ctx, item)
		}
	}
	return changes
}

// patchLocked applies changed mutable fields onto an existing item without
// replacing its identity. Only title and textContent are re-diffed after
// creation; date, location, and image are fixed once the item exists.
func (r *Reconciler) patchLocked(existing *Item, rec Record) (Change, bool) {
	updated := false
	if existing.Title != rec.Title {
		existing.Title = rec.Title
		updated = true
	}
	if existing.TextContent != rec.TextContent {
		existing.TextContent = rec.TextContent
		updated = true
	}
	if !updated {
		return Change{}, false
	}
	ch := Change{Kind: Updated, Filename: existing.Filename}
	r.emitLocked(ch)
	return ch, true
}

func (r *Reconciler) appendLocked(item *Item) Change {
	r.items = append(r.items, item)
	r.index[item.Filename] = item
	ch := Change{Kind: Added, Filename: item.Filename}
	r.emitLocked(ch)
	return ch
}

// fetchLocked downloads the item's blob off the reconcile path. The
// completion callback re-checks session state before touching the list, so
// a fetch that outlives the session is a no-op.
func (r *Reconciler) fetchLocked(ctx context.Context, item *Item) {
	r.pending[item.Filename] = struct{}{}
	r.fetches.Add(1)
	go func() {
		defer r.fetches.Done()
		data, err := r.blobs.Download(ctx, item.ImageURL, r.maxTransfer)

		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.pending, item.Filename)
		if r.closed {
			return
		}
		if err != nil {
			// Dropped for this pass; the next snapshot triggers a
			// fresh fetch.
			r.logger.Warn("reconcile: blob fetch failed, dropping item",
				slog.String("filename", item.Filename),
				slog.String("url", item.ImageURL),
				slog.String("error", err.Error()),
			)
			return
		}
		if _, ok := r.index[item.Filename]; ok {
			return
		}
		if err := validImage(data); err != nil {
			r.logger.Warn("reconcile: fetched blob is not an image, dropping item",
				slog.String("filename", item.Filename),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := r.cache.Store(item.Filename, data); err != nil {
			// Only costs a re-download on the next session.
			r.logger.Warn("reconcile: cache write failed",
				slog.String("filename", item.Filename),
				slog.String("error", err.Error()),
			)
		}
		item.Image = data
		r.appendLocked(item)
	}()
}

func (r *Reconciler) emitLocked(ch Change) {
	select {
	case r.events <- ch:
	default:
		r.logger.Warn("reconcile: change feed full, dropping event",
			slog.String("filename", ch.Filename),
			slog.String("kind", ch.Kind.String()),
		)
	}
}

// Close tears the session down: in-flight fetches are drained and
// discarded, and the change feed is closed. Safe to call more than once.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.fetches.Wait()
	close(r.events)
}
