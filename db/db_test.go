package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndScan(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, price REAL, data BLOB, note TEXT)")
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO items (id, name, price, data, note) VALUES (?, ?, ?, ?, ?)", DriverArgs([]any{1, "pen", 1.5, []byte("raw"), nil})...)
	require.NoError(t, err)

	rows, err := conn.Query("SELECT id, name, price, data, note FROM items")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	rec, err := ScanRecord(rows)
	require.NoError(t, err)

	assert.Equal(t, []any{"id", "name", "price", "data", "note"}, rec.Keys())
	id, _ := rec.Get("id")
	assert.Equal(t, 1, id)
	name, _ := rec.Get("name")
	assert.Equal(t, "pen", name)
	price, _ := rec.Get("price")
	assert.Equal(t, 1.5, price)
	data, _ := rec.Get("data")
	assert.Equal(t, "raw", data)
	note, ok := rec.Get("note")
	assert.True(t, ok)
	assert.Nil(t, note)
}

func TestDriverArgs(t *testing.T) {
	assert.Equal(t, []any{1, 0, "x"}, DriverArgs([]any{true, false, "x"}))
}

func TestValidIdent(t *testing.T) {
	for _, s := range []string{"menu_item", "MenuItem", "_x1"} {
		assert.True(t, ValidIdent(s), s)
	}
	for _, s := range []string{"", "1a", "a-b", "a;drop", "a b"} {
		assert.False(t, ValidIdent(s), s)
	}
}
