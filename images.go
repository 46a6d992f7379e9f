package pocketlint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 80 // quality factor 0.8
	maxUploadSize = 10 << 20

	// MaxTransferSize bounds a single blob download.
	MaxTransferSize = 5 << 20
)

// processImage decodes an image, downscales it to maxImageWidth if wider,
// and re-encodes it as JPEG. Returns the encoded bytes and final dimensions.
func processImage(src io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// validImage checks that data decodes as a supported image format without
// decoding the full pixel data.
func validImage(data []byte) error {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err
}

// newFilenameToken returns the identity token for a new item: the creation
// time as zero-padded decimal unix seconds. The padding keeps tokens of
// different eras comparable as strings.
func newFilenameToken(t time.Time) string {
	return fmt.Sprintf("%010d", t.Unix())
}

// blobPath is the storage path convention for an item's image.
func blobPath(userID, filename string) string {
	return userID + "/" + filename + ".jpg"
}
