package pocketlint

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ImageCache persists fetched item images in a flat per-user directory, one
// file per filename token (no extension). Entries are write-once: cached
// bytes are treated as immutable once written, even if the remote image
// later changes.
type ImageCache struct {
	dir string
}

// NewImageCache creates the cache directory if needed and returns a cache
// rooted there.
func NewImageCache(dir string) (*ImageCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CacheIOError{Op: "mkdir", Err: err}
	}
	return &ImageCache{dir: dir}, nil
}

// Dir returns the cache's root directory.
func (c *ImageCache) Dir() string { return c.dir }

func (c *ImageCache) path(filename string) string {
	// Base strips any path components so a hostile filename cannot
	// escape the cache directory.
	return filepath.Join(c.dir, filepath.Base(filename))
}

// Has reports whether an image for filename exists locally.
func (c *ImageCache) Has(filename string) bool {
	if filename == "" {
		return false
	}
	_, err := os.Stat(c.path(filename))
	return err == nil
}

// Load returns the cached image bytes for filename. ErrNotFound when the
// entry is absent; callers either call Has first or treat the miss as the
// signal to fetch.
func (c *ImageCache) Load(filename string) ([]byte, error) {
	if filename == "" {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(c.path(filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &CacheIOError{Filename: filename, Op: "read", Err: err}
	}
	return data, nil
}

// Store writes image bytes for filename. An existing entry is left exactly
// as it was: the first write wins and later writes are no-ops, so a
// concurrent fetch for the same filename can never corrupt the entry.
func (c *ImageCache) Store(filename string, data []byte) error {
	if filename == "" {
		return &CacheIOError{Filename: filename, Op: "write", Err: errors.New("empty filename")}
	}
	path := c.path(filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return &CacheIOError{Filename: filename, Op: "write", Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return &CacheIOError{Filename: filename, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &CacheIOError{Filename: filename, Op: "close", Err: err}
	}
	return nil
}
