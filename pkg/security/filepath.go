// Package security vets file paths taken from flags and environment variables.
package security

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrInvalidPath   = errors.New("invalid file path")
)

// CleanFilePath returns path cleaned. Empty paths, paths with NUL bytes and
// relative paths climbing above the working directory are rejected.
func CleanFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, 0) {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return "", ErrPathTraversal
		}
	}
	return clean, nil
}
