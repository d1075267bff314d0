// Package storage holds the file stores behind the server and the client.
package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	filehttp "github.com/always-cache/filehttp"
)

// Store reads and writes whole files addressed by a slash-separated path.
//
// Implementations must be thread-safe!
type Store interface {
	// Read returns the file at path. A missing file is a *filehttp.StorageError
	// with NotFound set.
	Read(path string) ([]byte, error)
	// Write creates or replaces the file at path.
	Write(path string, data []byte) error
}

// Dir is a Store rooted at a directory on disk.
// Paths never resolve outside Root.
type Dir struct {
	Root string
}

func (d Dir) resolve(path string) string {
	return filepath.Join(d.Root, filepath.FromSlash(clean(path)))
}

func (d Dir) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(d.resolve(path))
	if err != nil {
		return nil, &filehttp.StorageError{
			Op:       "read",
			Path:     path,
			NotFound: errors.Is(err, fs.ErrNotExist),
			Err:      err,
		}
	}
	return data, nil
}

func (d Dir) Write(path string, data []byte) error {
	name := d.resolve(path)
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return &filehttp.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return &filehttp.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// clean makes path absolute and drops any ".." that would climb above "/".
func clean(path string) string {
	return filepath.ToSlash(filepath.Clean("/" + path))
}
