//go:build !cgo_sqlite

package db

import _ "modernc.org/sqlite"

// DriverName is the database/sql driver backing Open.
const DriverName = "sqlite"
