// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"errors"
	"fmt"

	"github.com/cilbind/cilbind/pkg/cil"
)

var (
	// ErrUnresolvedDependency is the sentinel wrapped by UnresolvedDependencyError.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	// ErrMissingType is the sentinel wrapped by MissingTypeError.
	ErrMissingType = errors.New("type missing from resolved module")
	// ErrAssemblyNotFound is returned by a Fallback that has no candidate for
	// the requested assembly.
	ErrAssemblyNotFound = errors.New("assembly not found")
	// ErrSearchPathFrozen is returned when extra folders change after the
	// first resolution.
	ErrSearchPathFrozen = errors.New("search path is frozen after first resolution")
	// ErrEmptyInputDir is returned by NewResolver for an empty input directory.
	ErrEmptyInputDir = errors.New("input directory must not be empty")
)

type (
	// UnresolvedDependencyError is returned when neither the search path nor
	// the fallback resolver can locate an assembly. Name is the simple name;
	// Searched lists the folders tried, in order.
	UnresolvedDependencyError struct {
		Name     string
		Identity cil.Identity
		Searched []string
	}

	// MissingTypeError is returned when a resolved assembly has no type at
	// the requested full path.
	MissingTypeError struct {
		Path     string
		Assembly cil.Identity
		Location string
	}
)

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	return "unable to resolve dependency: " + e.Name
}

// Unwrap returns ErrUnresolvedDependency.
func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

// Error implements the error interface.
func (e *MissingTypeError) Error() string {
	return fmt.Sprintf("type %q not found in %s (%s)", e.Path, e.Assembly, e.Location)
}

// Unwrap returns ErrMissingType.
func (e *MissingTypeError) Unwrap() error { return ErrMissingType }
