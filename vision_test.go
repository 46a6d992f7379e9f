package pocketlint

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestAnnotateFillsEmptyFields(t *testing.T) {
	d := DetectorFunc(func(ctx context.Context, image []byte) (Detection, error) {
		return Detection{Label: "Cup", Text: "tea list"}, nil
	})
	set := Settings{ItemDetection: true, TextDetection: true}

	rec := Record{}
	annotate(context.Background(), d, set, []byte("img"), &rec, slog.Default())
	if rec.Title != "Cup" || rec.TextContent != "tea list" {
		t.Errorf("annotate = %q/%q, want Cup/tea list", rec.Title, rec.TextContent)
	}
}

func TestAnnotateKeepsUserFields(t *testing.T) {
	d := DetectorFunc(func(ctx context.Context, image []byte) (Detection, error) {
		return Detection{Label: "Cup", Text: "tea list"}, nil
	})
	set := Settings{ItemDetection: true, TextDetection: true}

	rec := Record{Title: "My mug", TextContent: "keep me"}
	annotate(context.Background(), d, set, []byte("img"), &rec, slog.Default())
	if rec.Title != "My mug" || rec.TextContent != "keep me" {
		t.Errorf("annotate overwrote user fields: %q/%q", rec.Title, rec.TextContent)
	}
}

func TestAnnotateHonorsSettings(t *testing.T) {
	calls := 0
	d := DetectorFunc(func(ctx context.Context, image []byte) (Detection, error) {
		calls++
		return Detection{Label: "Cup", Text: "tea list"}, nil
	})

	rec := Record{}
	annotate(context.Background(), d, Settings{}, []byte("img"), &rec, slog.Default())
	if calls != 0 {
		t.Error("detector must not run with both detection settings off")
	}

	annotate(context.Background(), d, Settings{ItemDetection: true}, []byte("img"), &rec, slog.Default())
	if rec.Title != "Cup" {
		t.Errorf("Title = %q, want Cup", rec.Title)
	}
	if rec.TextContent != "" {
		t.Errorf("TextContent = %q, want empty with TextDetection off", rec.TextContent)
	}
}

func TestAnnotateIgnoresFailure(t *testing.T) {
	d := DetectorFunc(func(ctx context.Context, image []byte) (Detection, error) {
		return Detection{}, errors.New("vision service down")
	})
	set := Settings{ItemDetection: true, TextDetection: true}

	rec := Record{Title: "kept"}
	annotate(context.Background(), d, set, []byte("img"), &rec, slog.Default())
	if rec.Title != "kept" {
		t.Errorf("Title = %q, want kept", rec.Title)
	}
}
