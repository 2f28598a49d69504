// Package records looks up persisted entities for templates. Entities are
// plain rows; the persistence model itself lives outside this module.
package records

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/rubiojr/tplc/db"
	"github.com/rubiojr/tplc/value"
)

// Finder fetches a single entity of typeName whose columns match fields.
// A missing entity is (nil, nil).
type Finder interface {
	FindOneBy(typeName string, fields map[string]any) (*value.Record, error)
}

// SQLite is a Finder reading from a SQLite database where each entity
// type maps to a table named after it in snake_case (MenuItem ->
// menu_item).
type SQLite struct {
	db *sql.DB
}

// Open opens the database at path.
func Open(path string) (*SQLite, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	return &SQLite{db: conn}, nil
}

// New wraps an open database.
func New(conn *sql.DB) *SQLite { return &SQLite{db: conn} }

// DB returns the underlying database.
func (s *SQLite) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) FindOneBy(typeName string, fields map[string]any) (*value.Record, error) {
	table := TableName(typeName)
	if !db.ValidIdent(table) {
		return nil, fmt.Errorf("records: invalid entity type %q", typeName)
	}
	var where []string
	var args []any
	for _, col := range value.SortedKeys(fields) {
		if !db.ValidIdent(col) {
			return nil, fmt.Errorf("records: invalid field %q", col)
		}
		where = append(where, col+" = ?")
		args = append(args, fields[col])
	}
	query := "SELECT * FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " LIMIT 1"

	rows, err := s.db.Query(query, db.DriverArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("records: find %s: %w", typeName, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return db.ScanRecord(rows)
}

// TableName converts an entity type name to its table name. Namespace
// prefixes (`\Menu\Entity\MenuItem`, `menu.MenuItem`) are dropped.
func TableName(typeName string) string {
	if i := strings.LastIndexAny(typeName, `\./`); i >= 0 {
		typeName = typeName[i+1:]
	}
	var sb strings.Builder
	runes := []rune(typeName)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) && runes[i-1] != '_' {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
