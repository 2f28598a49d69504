//go:build cgo_sqlite

package db

import _ "github.com/mattn/go-sqlite3"

// DriverName is the database/sql driver backing Open.
const DriverName = "sqlite3"
