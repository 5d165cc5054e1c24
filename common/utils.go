package common

import (
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// NormalizePath returns the canonical cache key for a file path.
// The path is lexically cleaned, converted to forward slashes and put into Unicode NFC form,
// so the same file named through different spellings maps to one key.
//
// Parameters:
//   - path: the file path to normalize
//
// Returns:
//   - string: the normalized path, or "" for an empty input
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return norm.NFC.String(filepath.ToSlash(filepath.Clean(path)))
}
