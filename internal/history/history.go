// Package history keeps a local log of published uploads so a recording
// is not re-uploaded by accident.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Upload is one published video.
type Upload struct {
	ID         int64
	Title      string
	URL        string
	UploadedAt string
}

// Store is the SQLite-backed upload log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the upload log database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS uploads (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL UNIQUE,
		url         TEXT NOT NULL,
		uploaded_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Find returns the recorded URL for a title, or ok=false when the title
// was never uploaded.
func (s *Store) Find(title string) (url string, ok bool, err error) {
	row := s.db.QueryRow(`SELECT url FROM uploads WHERE title = ?`, title)
	if err := row.Scan(&url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("history: find %q: %w", title, err)
	}
	return url, true, nil
}

// Record stores a published upload. Re-uploading the same title replaces
// the previous entry.
func (s *Store) Record(title, url string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO uploads (title, url, uploaded_at) VALUES (?, ?, ?)
		 ON CONFLICT(title) DO UPDATE SET url = excluded.url, uploaded_at = excluded.uploaded_at`,
		title, url, now,
	)
	if err != nil {
		return fmt.Errorf("history: record %q: %w", title, err)
	}
	return nil
}

// List returns all recorded uploads, newest first.
func (s *Store) List() ([]Upload, error) {
	rows, err := s.db.Query(`SELECT id, title, url, uploaded_at FROM uploads ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.Title, &u.URL, &u.UploadedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
