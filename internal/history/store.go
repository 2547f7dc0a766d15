// Package history keeps a SQLite log of translations served by the MCP server.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded translation.
type Entry struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Mode           string    `json:"mode"`
	Source         string    `json:"source,omitempty"`
	CellCount      int       `json:"cell_count"`
	DetectionText  string    `json:"detection_text"`
	TranslatedText string    `json:"translated_text"`
}

// Store wraps the SQLite connection with thread-safe access.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
	now  func() time.Time
}

// New opens (creating if needed) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn, now: time.Now}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		mode TEXT NOT NULL,
		source TEXT DEFAULT '',
		cell_count INTEGER DEFAULT 0,
		detection_text TEXT NOT NULL,
		translated_text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_translations_created_at ON translations(created_at);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record inserts e and returns its id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	result, err := s.conn.ExecContext(ctx, `
		INSERT INTO translations (created_at, mode, source, cell_count, detection_text, translated_text)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.CreatedAt.UTC(), e.Mode, e.Source, e.CellCount, e.DetectionText, e.TranslatedText)
	if err != nil {
		return 0, fmt.Errorf("failed to insert translation: %w", err)
	}

	return result.LastInsertId()
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRowContext(ctx, `
		SELECT id, created_at, mode, source, cell_count, detection_text, translated_text
		FROM translations WHERE id = ?
	`, id)

	var e Entry
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.Mode, &e.Source, &e.CellCount, &e.DetectionText, &e.TranslatedText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return Entry{}, fmt.Errorf("failed to scan translation: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, created_at, mode, source, cell_count, detection_text, translated_text
		FROM translations ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Mode, &e.Source, &e.CellCount, &e.DetectionText, &e.TranslatedText); err != nil {
			return nil, fmt.Errorf("failed to scan translation: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of recorded translations.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count translations: %w", err)
	}
	return n, nil
}
