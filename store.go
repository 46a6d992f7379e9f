package pocketlint

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RecordStore wraps a SQLite database holding user accounts, the per-user
// journal record collections, and per-user settings. It is the remote
// record store of a self-hosted deployment, and it fans change
// notifications out to snapshot subscribers.
type RecordStore struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[string]map[int]chan struct{}
	nextSub int
}

// NewRecordStore opens (or creates) the SQLite database at path, ensures
// the data directory exists, and runs schema migrations.
func NewRecordStore(path string) (*RecordStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy timeout so writers wait
	// instead of failing with SQLITE_BUSY, synchronous=NORMAL is safe
	// under WAL and avoids an fsync per transaction.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &RecordStore{
		db:   db,
		subs: make(map[string]map[int]chan struct{}),
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

func (s *RecordStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
    user_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    image_url TEXT NOT NULL,
    date TEXT NOT NULL,
    title TEXT NOT NULL,
    text_content TEXT NOT NULL,
    latitude REAL NOT NULL DEFAULT 0,
    longitude REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, filename)
);
CREATE TABLE IF NOT EXISTS settings (
    user_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (user_id, key)
);
`)
	return err
}

// CreateUser registers a user and returns the generated user ID.
func (s *RecordStore) CreateUser(username, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`,
		id, username, passwordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return "", fmt.Errorf("username %q is taken", username)
		}
		return "", err
	}
	return id, nil
}

// UserByName returns the user ID and password hash for username.
// ErrNotFound when no such user exists.
func (s *RecordStore) UserByName(username string) (id, passwordHash string, err error) {
	err = s.db.QueryRow(`SELECT id, password_hash FROM users WHERE username = ?`, username).
		Scan(&id, &passwordHash)
	if err == sql.ErrNoRows {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return id, passwordHash, nil
}

// Snapshot returns the full record collection for a user, keyed by filename.
func (s *RecordStore) Snapshot(userID string) (Snapshot, error) {
	rows, err := s.db.Query(`SELECT filename, image_url, date, title, text_content, latitude, longitude
		FROM records WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := make(Snapshot)
	for rows.Next() {
		var filename string
		var rec Record
		if err := rows.Scan(&filename, &rec.Image, &rec.Date, &rec.Title, &rec.TextContent, &rec.Latitude, &rec.Longitude); err != nil {
			return nil, err
		}
		snap[filename] = rec
	}
	return snap, rows.Err()
}

// Get returns a single record by filename. ErrNotFound when absent.
func (s *RecordStore) Get(userID, filename string) (Record, error) {
	var rec Record
	err := s.db.QueryRow(`SELECT image_url, date, title, text_content, latitude, longitude
		FROM records WHERE user_id = ? AND filename = ?`, userID, filename).
		Scan(&rec.Image, &rec.Date, &rec.Title, &rec.TextContent, &rec.Latitude, &rec.Longitude)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Put creates or replaces the record for filename and notifies the user's
// snapshot subscribers.
func (s *RecordStore) Put(userID, filename string, rec Record) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO records
		(user_id, filename, image_url, date, title, text_content, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, filename, rec.Image, rec.Date, rec.Title, rec.TextContent, rec.Latitude, rec.Longitude)
	if err != nil {
		return err
	}
	s.notify(userID)
	return nil
}

// UpdateFields patches title and/or textContent on an existing record.
// A nil pointer leaves that field unchanged. The other record fields are
// immutable after creation. ErrNotFound when the record does not exist.
func (s *RecordStore) UpdateFields(userID, filename string, title, textContent *string) error {
	if title == nil && textContent == nil {
		return nil
	}
	var sets []string
	var args []any
	if title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *title)
	}
	if textContent != nil {
		sets = append(sets, "text_content = ?")
		args = append(args, *textContent)
	}
	args = append(args, userID, filename)
	res, err := s.db.Exec(`UPDATE records SET `+strings.Join(sets, ", ")+
		` WHERE user_id = ? AND filename = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.notify(userID)
	return nil
}

// Delete removes a record. ErrNotFound when it does not exist; the caller
// removes the associated blob.
func (s *RecordStore) Delete(userID, filename string) error {
	res, err := s.db.Exec(`DELETE FROM records WHERE user_id = ? AND filename = ?`, userID, filename)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.notify(userID)
	return nil
}

// Subscribe registers interest in changes to userID's record collection.
// The returned channel carries coalesced change signals (buffer of one);
// the cancel func unregisters the subscription and closes the channel.
func (s *RecordStore) Subscribe(userID string) (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]chan struct{})
	}
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[userID][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[userID][id]; ok {
			delete(s.subs[userID], id)
			close(sub)
		}
	}
	return ch, cancel
}

// notify signals every subscriber of userID's collection. Signals coalesce:
// a subscriber that has not drained the previous one gets nothing new.
func (s *RecordStore) notify(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
