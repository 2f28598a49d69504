package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// File stores one file per entry under Dir, named by the sha256 of the
// key. Writes are atomic so a concurrent reader never sees a partial
// entry.
type File struct {
	Dir string
}

// NewFile creates dir if needed and returns a store rooted there.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("cache: file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &File{Dir: dir}, nil
}

func (f *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.Dir, hex.EncodeToString(sum[:])+".cache")
}

func (f *File) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: read %q: %w", key, err)
	}
	return string(data), true, nil
}

func (f *File) Set(key, content string) error {
	if err := atomic.WriteFile(f.path(key), strings.NewReader(content)); err != nil {
		return fmt.Errorf("cache: write %q: %w", key, err)
	}
	return nil
}
