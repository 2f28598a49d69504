package cache

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rubiojr/tplc/db"
)

const schema = `CREATE TABLE IF NOT EXISTS template_cache (
	key     TEXT PRIMARY KEY,
	content TEXT NOT NULL
)`

// SQLite keeps entries in the template_cache table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and creates the cache table.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	s, err := NewSQLite(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite uses an already open database.
func NewSQLite(conn *sql.DB) (*SQLite, error) {
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("cache: create table: %w", err)
	}
	return &SQLite{db: conn}, nil
}

func (s *SQLite) Get(key string) (string, bool, error) {
	var content string
	err := s.db.QueryRow("SELECT content FROM template_cache WHERE key = ?", key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	return content, true, nil
}

func (s *SQLite) Set(key, content string) error {
	_, err := s.db.Exec(`INSERT INTO template_cache (key, content) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET content = excluded.content`, key, content)
	if err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }
