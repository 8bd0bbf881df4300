package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteBackend keeps processed videos in a single-table SQLite database.
// Each Mark is one committed INSERT, so the store never holds a partial set.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS processed_videos (
		video_id     TEXT PRIMARY KEY,
		processed_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		if isCorrupt(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
		}
		return nil, fmt.Errorf("failed to initialize %s: %w", path, err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load() (map[string]time.Time, error) {
	rows, err := b.db.Query(`SELECT video_id, processed_at FROM processed_videos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed videos: %w", err)
	}
	defer rows.Close()

	records := make(map[string]time.Time)
	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan processed video: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339, at)
		records[id] = ts
	}
	return records, rows.Err()
}

func (b *SQLiteBackend) Save(records map[string]time.Time, latest string) error {
	at, ok := records[latest]
	if !ok {
		return fmt.Errorf("video %s is not in the record set", latest)
	}
	_, err := b.db.Exec(
		`INSERT OR REPLACE INTO processed_videos (video_id, processed_at) VALUES (?, ?)`,
		latest, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert processed video: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// isCorrupt reports whether err is SQLite rejecting the file contents.
func isCorrupt(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return true
	}
	return false
}
