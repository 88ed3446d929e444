// Package store provides the local SQLite-backed cache for idea
// collections. A single key-value table holds the serialized
// collection, so a stale-but-usable copy survives restarts and
// network outages.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
)

const collectionKey = "ideas.collection"

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is a SQLite-backed key-value store.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store at the given data directory.
// If dataDir is empty, defaults to ~/.muse/data.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".muse", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "muse.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Set writes a value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// Get reads the value under key. Returns ErrNotFound for unknown keys.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// SaveCollection serializes the idea collection into the kv table.
func (s *Store) SaveCollection(ctx context.Context, collection []ideas.Idea) error {
	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}
	return s.Set(ctx, collectionKey, string(data))
}

// LoadCollection reads the last saved collection. A store that has
// never been written returns an empty collection, not an error.
func (s *Store) LoadCollection(ctx context.Context) ([]ideas.Idea, error) {
	raw, err := s.Get(ctx, collectionKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var collection []ideas.Idea
	if err := json.Unmarshal([]byte(raw), &collection); err != nil {
		return nil, fmt.Errorf("decoding collection: %w", err)
	}
	return collection, nil
}
