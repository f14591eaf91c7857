package storage

import (
	"errors"
	"path"
	"strings"
)

// Store represents a named-file store. Names are slash-separated relative
// paths chosen by the caller, e.g., "reports/2024/q1.csv".
type Store interface {
	// Put writes data as the full content of the named file, overwriting
	// anything stored under the same name.
	Put(name string, data []byte) (err error)

	// Get should return ErrNotFound if nothing is stored under the name.
	Get(name string) (data []byte, err error)

	// Exists reports whether a file is stored under the name, without
	// reading its content. Names that cannot be stored do not exist.
	Exists(name string) (ok bool, err error)
}

var (
	// ErrNotFound indicates a name is not in the store.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName indicates a name that is empty, absolute, or that would
	// resolve outside of the store's root once cleaned.
	ErrInvalidName = errors.New("invalid name")
)

// cleanName normalizes a caller supplied name into a slash-separated relative
// path, or returns ErrInvalidName.
func cleanName(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	if strings.HasPrefix(name, "/") {
		return "", ErrInvalidName
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

func dup(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
