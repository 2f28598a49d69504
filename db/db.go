// Package db opens the SQLite databases used by the SQLite cache store and
// the record finder. The pure-Go modernc.org/sqlite driver is the default;
// building with -tags cgo_sqlite switches to github.com/mattn/go-sqlite3.
package db

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/rubiojr/tplc/scanner"
	"github.com/rubiojr/tplc/value"
)

// Open opens and pings the SQLite database at dataSource.
func Open(dataSource string) (*sql.DB, error) {
	conn, err := sql.Open(DriverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", dataSource, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: open %s: %w", dataSource, err)
	}
	return conn, nil
}

// ValidIdent reports whether s can be used unquoted as a table or column
// name.
func ValidIdent(s string) bool { return scanner.IsIdent(s) }

// ScanRecord scans the current row into a record keyed by column name, in
// column order.
func ScanRecord(rows *sql.Rows) (*value.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("db: scan: %w", err)
	}
	rec := value.NewRecord()
	for i, col := range cols {
		rec.Set(col, normalizeValue(vals[i]))
	}
	return rec, nil
}

// DriverArgs converts template values to driver-friendly values.
func DriverArgs(params []any) []any {
	args := make([]any, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				args[i] = 1
			} else {
				args[i] = 0
			}
		default:
			args[i] = p
		}
	}
	return args
}

// normalizeValue converts database values to template-friendly types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, float64, string, bool:
		return val
	case int64:
		if val >= math.MinInt && val <= math.MaxInt {
			return int(val)
		}
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
