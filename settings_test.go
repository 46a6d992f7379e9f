package pocketlint

import "testing"

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	set, err := s.Settings("u1")
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if set != DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults %+v", set, DefaultSettings())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := Settings{
		SortOrder:     OldestFirst,
		TextDetection: true,
		ItemDetection: true,
		SaveLocation:  false,
		ItemSize:      2,
	}
	if err := s.SaveSettings("u1", want); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, err := s.Settings("u1")
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if got != want {
		t.Errorf("Settings = %+v, want %+v", got, want)
	}

	// Another user still sees defaults.
	other, err := s.Settings("u2")
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if other != DefaultSettings() {
		t.Errorf("other user's settings = %+v, want defaults", other)
	}
}

func TestSaveSettingsNormalizesSortOrder(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSettings("u1", Settings{SortOrder: "sideways", ItemSize: 1}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, err := s.Settings("u1")
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if got.SortOrder != NewestFirst {
		t.Errorf("SortOrder = %q, want %q", got.SortOrder, NewestFirst)
	}
}
