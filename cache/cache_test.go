package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
	}
}

func TestStores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("empty", ""))
			got, ok, err := s.Get("empty")
			require.NoError(t, err)
			assert.True(t, ok, "cached empty string must be a hit")
			assert.Equal(t, "", got)

			require.NoError(t, s.Set("k", "first"))
			require.NoError(t, s.Set("k", "second"))
			got, ok, err = s.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second", got)

			require.NoError(t, s.Set("menu/footer?lang=de", "<ul></ul>"))
			got, _, err = s.Get("menu/footer?lang=de")
			require.NoError(t, err)
			assert.Equal(t, "<ul></ul>", got)
		})
	}
}

func TestStoresConcurrent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, s.Set("shared", fmt.Sprintf("v%d", i)))
					_, _, err := s.Get("shared")
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()
			_, ok, err := s.Get("shared")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestFileLayout(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, f.Set("a", "x"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".cache", filepath.Ext(entries[0].Name()))

	_, err = NewFile("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open("file", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	_, err = Open("redis", "")
	assert.ErrorContains(t, err, `unknown driver "redis"`)
}
