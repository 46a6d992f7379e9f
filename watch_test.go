package pocketlint

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestOneShotDeliversSingleSnapshot(t *testing.T) {
	store := newTestStore(t)
	rec, cache, _ := newTestReconciler(t)
	img := encodeTestImage(t, 8, 8, false)
	cache.Store("1000", img)
	store.Put("u1", "1000", testRecord("u1", "1000", "Cup"))

	sub := Subscribe(store, rec, "u1", OneShot, nil)
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot session did not finish")
	}
	if got := waitEvent(t, rec.Events()); got.Kind != Added || got.Filename != "1000" {
		t.Fatalf("event = %+v, want Added 1000", got)
	}

	// Changes after the session ends are not delivered.
	cache.Store("1001", img)
	store.Put("u1", "1001", testRecord("u1", "1001", "Keys"))
	time.Sleep(100 * time.Millisecond)
	if items := rec.Items(); len(items) != 1 {
		t.Errorf("item count = %d, want 1 after one-shot session", len(items))
	}
}

func TestContinuousDeliversOnEveryChange(t *testing.T) {
	store := newTestStore(t)
	rec, cache, _ := newTestReconciler(t)
	img := encodeTestImage(t, 8, 8, false)
	cache.Store("1000", img)
	cache.Store("1001", img)
	store.Put("u1", "1000", testRecord("u1", "1000", "Cup"))

	sub := Subscribe(store, rec, "u1", Continuous, nil)
	defer sub.Stop()

	if got := waitEvent(t, rec.Events()); got.Kind != Added || got.Filename != "1000" {
		t.Fatalf("initial event = %+v, want Added 1000", got)
	}

	store.Put("u1", "1001", testRecord("u1", "1001", "Keys"))
	if got := waitEvent(t, rec.Events()); got.Kind != Added || got.Filename != "1001" {
		t.Fatalf("event = %+v, want Added 1001", got)
	}

	changed := testRecord("u1", "1000", "Mug")
	store.Put("u1", "1000", changed)
	if got := waitEvent(t, rec.Events()); got.Kind != Updated || got.Filename != "1000" {
		t.Fatalf("event = %+v, want Updated 1000", got)
	}
}

func TestStopEndsContinuousSession(t *testing.T) {
	store := newTestStore(t)
	rec, cache, _ := newTestReconciler(t)
	img := encodeTestImage(t, 8, 8, false)
	cache.Store("1000", img)

	sub := Subscribe(store, rec, "u1", Continuous, nil)
	sub.Stop()
	sub.Stop() // safe to call twice

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not end after Stop")
	}

	store.Put("u1", "1000", testRecord("u1", "1000", "Cup"))
	time.Sleep(100 * time.Millisecond)
	if items := rec.Items(); len(items) != 0 {
		t.Errorf("item count = %d, want 0 after Stop", len(items))
	}
}

// failingSource always errors on snapshot reads.
type failingSource struct {
	mu    sync.Mutex
	reads int
}

func (f *failingSource) Snapshot(userID string) (Snapshot, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	return nil, errors.New("remote unavailable")
}

func (f *failingSource) Subscribe(userID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	return ch, func() {}
}

func TestSnapshotFailureDoesNotEndSession(t *testing.T) {
	src := &failingSource{}
	rec, _, _ := newTestReconciler(t)

	sub := Subscribe(src, rec, "u1", Continuous, nil)
	defer sub.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		src.mu.Lock()
		reads := src.reads
		src.mu.Unlock()
		if reads >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-sub.Done():
		t.Fatal("session ended on a snapshot failure")
	case <-time.After(100 * time.Millisecond):
	}
}
