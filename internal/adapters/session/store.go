// Package session persists the authenticated identity and profile locally
// in an embedded SQLite database, the client-side equivalent of a key-value
// session cache. Values are read once at cold start and written on every
// identity or profile change.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/m4rcusml/event-planner/internal/domain"
)

const (
	keyIdentity = "identity"
	keyProfile  = "profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_cache (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Store is a SQLite-backed SessionStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle and ensures the schema exists.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create session cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveIdentity persists the serialized identity.
func (s *Store) SaveIdentity(identity *domain.Identity) error {
	return s.put(keyIdentity, identity)
}

// LoadIdentity returns the cached identity, or (nil, nil) when absent.
func (s *Store) LoadIdentity() (*domain.Identity, error) {
	var identity domain.Identity
	ok, err := s.get(keyIdentity, &identity)
	if err != nil || !ok {
		return nil, err
	}
	return &identity, nil
}

// SaveProfile persists the serialized profile document.
func (s *Store) SaveProfile(profile *domain.Profile) error {
	return s.put(keyProfile, profile)
}

// LoadProfile returns the cached profile, or (nil, nil) when absent.
func (s *Store) LoadProfile() (*domain.Profile, error) {
	var profile domain.Profile
	ok, err := s.get(keyProfile, &profile)
	if err != nil || !ok {
		return nil, err
	}
	return &profile, nil
}

// Clear removes every cached value. Called on sign-out.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session_cache`); err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

func (s *Store) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO session_cache (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM session_cache WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
