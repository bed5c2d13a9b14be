// SPDX-License-Identifier: MPL-2.0

package clrmeta

import (
	"errors"
	"fmt"
)

var (
	// ErrNotManaged is returned for PE images without a CLI header.
	ErrNotManaged = errors.New("not a managed PE image")
	// ErrNoAssembly is returned for netmodules, which have no Assembly row.
	ErrNoAssembly = errors.New("module has no assembly manifest")
	// ErrMalformed is the sentinel wrapped by MalformedError.
	ErrMalformed = errors.New("malformed metadata")
)

// MalformedError reports a structural problem in the image.
// It wraps ErrMalformed for errors.Is() compatibility.
type MalformedError struct {
	// Structure names the part being read, e.g. "metadata root", "#~ stream".
	Structure string
	Reason    string
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed metadata: %s: %s", e.Structure, e.Reason)
}

// Unwrap returns ErrMalformed.
func (e *MalformedError) Unwrap() error { return ErrMalformed }

func malformed(structure, format string, args ...any) error {
	return &MalformedError{Structure: structure, Reason: fmt.Sprintf(format, args...)}
}
