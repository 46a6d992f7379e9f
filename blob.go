package pocketlint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ProgressFunc receives upload progress as a percentage. The stream is
// monotonically non-decreasing from the sender's side, but consumers must
// treat each value as "latest wins" and tolerate duplicates.
type ProgressFunc func(pct int)

// BlobStore is the remote content store for images, addressed by the
// {userId}/{token}.jpg path convention.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, progress ProgressFunc) error
	Download(ctx context.Context, path string, maxSize int64) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// uploadChunkSize is the write granularity used to derive progress events.
const uploadChunkSize = 64 << 10

// FileBlobStore keeps blobs on the local filesystem under a root directory.
// It backs the self-hosted server and doubles as an in-process store for the
// engine in embedded deployments.
type FileBlobStore struct {
	root string
}

// NewFileBlobStore creates the root directory if needed.
func NewFileBlobStore(root string) (*FileBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}
	return &FileBlobStore{root: root}, nil
}

// cleanBlobPath validates a {userId}/{name} blob path and returns its
// filesystem-relative form. Anything that could escape the root is rejected.
func cleanBlobPath(path string) (string, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	for _, p := range parts {
		if p == "." || p == ".." || strings.ContainsAny(p, `\`) {
			return "", fmt.Errorf("invalid blob path %q", path)
		}
	}
	return filepath.Join(parts[0], parts[1]), nil
}

// Upload stores data at path, emitting progress events as it writes. The
// final event is always 100.
func (s *FileBlobStore) Upload(ctx context.Context, path string, data []byte, progress ProgressFunc) error {
	rel, err := cleanBlobPath(path)
	if err != nil {
		return &TransportError{Op: "upload", URL: path, Err: err}
	}
	full := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &TransportError{Op: "upload", URL: path, Err: err}
	}
	f, err := os.Create(full)
	if err != nil {
		return &TransportError{Op: "upload", URL: path, Err: err}
	}
	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			f.Close()
			os.Remove(full)
			return &TransportError{Op: "upload", URL: path, Err: err}
		}
		end := written + uploadChunkSize
		if end > len(data) {
			end = len(data)
		}
		n, err := f.Write(data[written:end])
		written += n
		if err != nil {
			f.Close()
			os.Remove(full)
			return &TransportError{Op: "upload", URL: path, Err: err}
		}
		if progress != nil {
			progress(written * 100 / len(data))
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return &TransportError{Op: "upload", URL: path, Err: err}
	}
	if progress != nil {
		progress(100)
	}
	return nil
}

// Download reads the blob at path. Blobs larger than maxSize are refused
// rather than truncated.
func (s *FileBlobStore) Download(ctx context.Context, path string, maxSize int64) ([]byte, error) {
	rel, err := cleanBlobPath(path)
	if err != nil {
		return nil, &TransportError{Op: "download", URL: path, Err: err}
	}
	full := filepath.Join(s.root, rel)
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &TransportError{Op: "download", URL: path, Err: err}
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, &TransportError{Op: "download", URL: path, Err: fmt.Errorf("blob is %d bytes, limit %d", info.Size(), maxSize)}
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &TransportError{Op: "download", URL: path, Err: err}
	}
	return data, nil
}

// Delete removes the blob at path. Deleting an absent blob is not an error.
func (s *FileBlobStore) Delete(ctx context.Context, path string) error {
	rel, err := cleanBlobPath(path)
	if err != nil {
		return &TransportError{Op: "delete", URL: path, Err: err}
	}
	if err := os.Remove(filepath.Join(s.root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &TransportError{Op: "delete", URL: path, Err: err}
	}
	return nil
}
