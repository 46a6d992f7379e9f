package pocketlint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"
)

// Client speaks the pocketlintd JSON API. It satisfies both SnapshotSource
// and BlobSource, so a Reconciler session runs against a remote server
// exactly as it runs against an in-process RecordStore.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client for the server at base (e.g.
// "https://journal.example.com"). Session cookies are kept in an in-memory
// jar for the lifetime of the client.
func NewClient(base string, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Jar: jar, Timeout: 60 * time.Second},
		logger: logger,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &TransportError{Op: method, URL: path, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: path, Err: err}
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, method, path); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: method, URL: path, Err: err}
		}
	}
	return nil
}

func checkStatus(resp *http.Response, method, path string) error {
	if resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &TransportError{
		Op:  method,
		URL: path,
		Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
	}
}

// Register creates an account and returns the new user ID.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/register",
		credentials{Username: username, Password: password}, &out)
	return out.UserID, err
}

// Login authenticates and stores the session cookie. Returns the user ID.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/login",
		credentials{Username: username, Password: password}, &out)
	return out.UserID, err
}

// Logout drops the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// Snapshot performs a full read of the record collection. The session
// cookie scopes it to the logged-in user; userID exists to satisfy
// SnapshotSource.
func (c *Client) Snapshot(userID string) (Snapshot, error) {
	var snap Snapshot
	if err := c.doJSON(context.Background(), http.MethodGet, "/api/items", nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Item reads a single record. ErrNotFound when it does not exist.
func (c *Client) Item(ctx context.Context, filename string) (Record, error) {
	var rec Record
	err := c.doJSON(ctx, http.MethodGet, "/api/items/"+filename, nil, &rec)
	return rec, err
}

// PatchItem updates title and/or textContent on an existing record. A nil
// pointer leaves that field unchanged.
func (c *Client) PatchItem(ctx context.Context, filename string, title, textContent *string) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/items/"+filename,
		patchRequest{Title: title, TextContent: textContent}, nil)
}

// DeleteItem removes the record and its blob.
func (c *Client) DeleteItem(ctx context.Context, filename string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/items/"+filename, nil, nil)
}

// UploadPhoto creates a new item from photo bytes, reporting upload
// progress as the request body streams out. Returns the assigned filename
// token.
func (c *Client) UploadPhoto(ctx context.Context, photo []byte, title, textContent string, lat, lng float64, progress ProgressFunc) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(photo); err != nil {
		return "", err
	}
	w.WriteField("title", title)
	w.WriteField("textContent", textContent)
	if lat != 0 || lng != 0 {
		w.WriteField("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		w.WriteField("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	pr := &progressReader{
		r:        bytes.NewReader(body.Bytes()),
		total:    int64(body.Len()),
		progress: progress,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/photos", pr)
	if err != nil {
		return "", &TransportError{Op: "upload", URL: "/api/photos", Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = int64(body.Len())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "upload", URL: "/api/photos", Err: err}
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "upload", "/api/photos"); err != nil {
		return "", err
	}
	var out struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "upload", URL: "/api/photos", Err: err}
	}
	return out.Filename, nil
}

// Download fetches a blob by its {userId}/{token}.jpg locator, refusing
// anything over maxSize.
func (c *Client) Download(ctx context.Context, url string, maxSize int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/blobs/"+url, nil)
	if err != nil {
		return nil, &TransportError{Op: "download", URL: url, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "download", URL: url, Err: err}
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "download", url); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, &TransportError{Op: "download", URL: url, Err: err}
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, &TransportError{Op: "download", URL: url, Err: fmt.Errorf("blob exceeds %d bytes", maxSize)}
	}
	return data, nil
}

// Settings reads the user's persisted settings.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var set Settings
	err := c.doJSON(ctx, http.MethodGet, "/api/settings", nil, &set)
	return set, err
}

// SaveSettings writes the user's settings back, typically at session end.
func (c *Client) SaveSettings(ctx context.Context, set Settings) error {
	return c.doJSON(ctx, http.MethodPut, "/api/settings", set, nil)
}

// Subscribe long-polls the change feed, translating each "changed"
// response into a signal. The cancel func stops the poll loop; the channel
// closes once the loop exits.
func (c *Client) Subscribe(userID string) (<-chan struct{}, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for ctx.Err() == nil {
			changed, err := c.waitChange(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("sync: change poll failed", slog.String("error", err.Error()))
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			if changed {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, func() { cancel() }
}

func (c *Client) waitChange(ctx context.Context) (bool, error) {
	var out struct {
		Changed bool `json:"changed"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/changes", nil, &out); err != nil {
		return false, err
	}
	return out.Changed, nil
}

// progressReader reports how much of the request body has been read as a
// percentage. The resulting stream is non-decreasing, but consumers still
// treat each value as "latest wins".
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.progress != nil && p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		p.progress(pct)
	}
	return n, err
}
