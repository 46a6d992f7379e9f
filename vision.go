package pocketlint

import (
	"context"
	"log/slog"
)

// Detection is what the cloud vision collaborator returns for an image.
type Detection struct {
	Label string // best-guess object label
	Text  string // extracted text, if any
}

// Detector is the seam for an external vision service: given image bytes it
// returns a label and/or extracted text. Implementations may take
// arbitrarily long and may fail; callers treat results as best-effort.
type Detector interface {
	Detect(ctx context.Context, image []byte) (Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, image []byte) (Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, image []byte) (Detection, error) {
	return f(ctx, image)
}

// annotate fills empty title/textContent fields on a new record from the
// detector, honoring the user's detection settings. Detection failures are
// logged and ignored; the upload proceeds untagged.
func annotate(ctx context.Context, d Detector, set Settings, image []byte, rec *Record, logger *slog.Logger) {
	if d == nil || (!set.ItemDetection && !set.TextDetection) {
		return
	}
	det, err := d.Detect(ctx, image)
	if err != nil {
		logger.Warn("vision: detection failed", slog.String("error", err.Error()))
		return
	}
	if set.ItemDetection && rec.Title == "" {
		rec.Title = det.Label
	}
	if set.TextDetection && rec.TextContent == "" {
		rec.TextContent = det.Text
	}
}
