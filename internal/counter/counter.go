// Package counter reports how many entries a directory holds.
package counter

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotDirectory is returned when the counted path exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Result is the outcome of counting one directory.
type Result struct {
	Path  string
	Count int
}

// Count returns the number of entries directly inside path.
// Files, subdirectories and hidden entries all count; nothing is recursed into.
// A missing path is an error wrapping fs.ErrNotExist, never a zero count.
func Count(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	return len(entries), nil
}

// Run counts path and returns it as a Result.
func Run(path string) (*Result, error) {
	n, err := Count(path)
	if err != nil {
		return nil, err
	}
	return &Result{Path: path, Count: n}, nil
}
