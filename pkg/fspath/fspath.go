// SPDX-License-Identifier: MPL-2.0

// Package fspath normalizes search locations that may be either local paths
// or afs URLs (mem://, file://, s3:// ...). Local paths go through
// path/filepath; URLs go through github.com/viant/afs/url.
package fspath

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// IsURL reports whether location carries a scheme.
func IsURL(location string) bool {
	return strings.Contains(location, "://")
}

// Abs makes a local path absolute. URLs are returned unchanged.
func Abs(location string) (string, error) {
	if IsURL(location) {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return abs, nil
}

// MustAbs is like Abs but returns location unchanged when the working
// directory cannot be determined.
func MustAbs(location string) string {
	abs, err := Abs(location)
	if err != nil {
		return location
	}
	return abs
}

// Dir returns the directory holding location.
func Dir(location string) string {
	if IsURL(location) {
		parent, _ := url.Split(location, file.Scheme)
		return parent
	}
	return filepath.Dir(location)
}

// Join appends elements to a local path or URL.
func Join(base string, elem ...string) string {
	if IsURL(base) {
		return url.Join(base, elem...)
	}
	return filepath.Join(append([]string{base}, elem...)...)
}
