package pocketlint

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	s, err := NewRecordStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRecordStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserAndLookup(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser("sasha", "hash-1")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if id == "" {
		t.Fatal("CreateUser returned empty id")
	}

	gotID, hash, err := s.UserByName("sasha")
	if err != nil {
		t.Fatalf("UserByName failed: %v", err)
	}
	if gotID != id || hash != "hash-1" {
		t.Errorf("UserByName = %q/%q, want %q/hash-1", gotID, hash, id)
	}

	if _, _, err := s.UserByName("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UserByName(nobody) = %v, want ErrNotFound", err)
	}
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateUser("sasha", "h"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := s.CreateUser("sasha", "h2"); err == nil {
		t.Error("duplicate username should fail")
	}
}

func TestRecordPutGetDelete(t *testing.T) {
	s := newTestStore(t)

	rec := Record{
		Image:       "u1/1000.jpg",
		Date:        "2018-05-11 16:20:00 GMT+10:00",
		Title:       "Cup",
		TextContent: "kitchen",
		Latitude:    -37.81,
		Longitude:   144.96,
	}
	if err := s.Put("u1", "1000", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get("u1", "1000")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != rec {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}

	if _, err := s.Get("u1", "9999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
	if _, err := s.Get("u2", "1000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get wrong user = %v, want ErrNotFound", err)
	}

	if err := s.Delete("u1", "1000"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("u1", "1000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestSnapshotIsPerUser(t *testing.T) {
	s := newTestStore(t)

	rec := Record{Image: "x.jpg", Date: "2018-05-11 16:20:00 GMT+10:00"}
	s.Put("u1", "1000", rec)
	s.Put("u1", "1001", rec)
	s.Put("u2", "2000", rec)

	snap, err := s.Snapshot("u1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if _, ok := snap["2000"]; ok {
		t.Error("snapshot leaked another user's record")
	}
}

func TestUpdateFields(t *testing.T) {
	s := newTestStore(t)
	s.Put("u1", "1000", Record{
		Image: "u1/1000.jpg",
		Date:  "2018-05-11 16:20:00 GMT+10:00",
		Title: "Cup", TextContent: "old",
	})

	title := "Mug"
	if err := s.UpdateFields("u1", "1000", &title, nil); err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	got, _ := s.Get("u1", "1000")
	if got.Title != "Mug" || got.TextContent != "old" {
		t.Errorf("after patch = %q/%q, want Mug/old", got.Title, got.TextContent)
	}

	text := "new text"
	if err := s.UpdateFields("u1", "1000", nil, &text); err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	got, _ = s.Get("u1", "1000")
	if got.Title != "Mug" || got.TextContent != "new text" {
		t.Errorf("after patch = %q/%q, want Mug/new text", got.Title, got.TextContent)
	}

	if err := s.UpdateFields("u1", "1000", nil, nil); err != nil {
		t.Errorf("no-field patch = %v, want nil", err)
	}
	if err := s.UpdateFields("u1", "9999", &title, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("patch of missing record = %v, want ErrNotFound", err)
	}
}

func TestSubscribeSignalsOnChange(t *testing.T) {
	s := newTestStore(t)
	ch, cancel := s.Subscribe("u1")
	defer cancel()

	s.Put("u1", "1000", Record{Image: "x.jpg", Date: "2018-05-11 16:20:00 GMT+10:00"})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no signal after Put")
	}

	// Another user's change does not signal this subscription.
	s.Put("u2", "2000", Record{Image: "y.jpg", Date: "2018-05-11 16:20:00 GMT+10:00"})
	select {
	case <-ch:
		t.Fatal("got signal for another user's change")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	s := newTestStore(t)
	ch, cancel := s.Subscribe("u1")
	cancel()
	cancel() // safe to call twice

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	// Notifying after cancel must not panic.
	s.Put("u1", "1000", Record{Image: "x.jpg", Date: "2018-05-11 16:20:00 GMT+10:00"})
}
