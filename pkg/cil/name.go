// SPDX-License-Identifier: MPL-2.0

package cil

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// NeutralCulture is the culture printed for culture-invariant assemblies.
	NeutralCulture = "neutral"
	// NullToken is the token printed for assemblies without a strong name.
	NullToken = "null"
	// ZeroVersion is the version printed when none is known.
	ZeroVersion = "0.0.0.0"
)

// ErrInvalidAssemblyName is returned when a display name cannot be parsed.
var ErrInvalidAssemblyName = errors.New("invalid assembly name")

type (
	// Identity is the full qualified name of an assembly. Two identities are
	// equal iff their strings are equal.
	Identity string

	// AssemblyName is the structured form of an assembly identity.
	AssemblyName struct {
		// Name is the simple name, e.g. "System.Xml".
		Name string
		// Version is the four-part version, e.g. "4.0.0.0".
		Version string
		// Culture is empty or "neutral" for culture-invariant assemblies.
		Culture string
		// PublicKeyToken is 16 lowercase hex characters, or empty when unsigned.
		PublicKeyToken string
	}

	// InvalidAssemblyNameError is returned by ParseAssemblyName.
	// It wraps ErrInvalidAssemblyName for errors.Is() compatibility.
	InvalidAssemblyNameError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidAssemblyNameError) Error() string {
	return fmt.Sprintf("invalid assembly name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidAssemblyName.
func (e *InvalidAssemblyNameError) Unwrap() error { return ErrInvalidAssemblyName }

// String returns the identity as a plain string.
func (id Identity) String() string { return string(id) }

// FullName renders the canonical display name used as the cache key:
//
//	Name, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null
func (n AssemblyName) FullName() Identity {
	version := n.Version
	if version == "" {
		version = ZeroVersion
	}
	culture := n.Culture
	if culture == "" {
		culture = NeutralCulture
	}
	token := n.PublicKeyToken
	if token == "" {
		token = NullToken
	}
	return Identity(fmt.Sprintf("%s, Version=%s, Culture=%s, PublicKeyToken=%s", n.Name, version, culture, token))
}

// String returns the full name.
func (n AssemblyName) String() string { return string(n.FullName()) }

// IsNeutral reports whether the assembly is culture-invariant.
func (n AssemblyName) IsNeutral() bool {
	return n.Culture == "" || strings.EqualFold(n.Culture, NeutralCulture)
}

// HasToken reports whether the assembly carries a public key token.
func (n AssemblyName) HasToken() bool {
	return n.PublicKeyToken != "" && !strings.EqualFold(n.PublicKeyToken, NullToken)
}

// ParseAssemblyName parses a display name such as
// "Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null". Only the
// simple name is required; absent parts render with their defaults.
func ParseAssemblyName(s string) (AssemblyName, error) {
	parts := strings.Split(s, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return AssemblyName{}, &InvalidAssemblyNameError{Value: s, Reason: "missing simple name"}
	}
	if strings.ContainsAny(name, "=/\\") {
		return AssemblyName{}, &InvalidAssemblyNameError{Value: s, Reason: "simple name contains a reserved character"}
	}

	an := AssemblyName{Name: name}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return AssemblyName{}, &InvalidAssemblyNameError{Value: s, Reason: fmt.Sprintf("component %q is not key=value", strings.TrimSpace(part))}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "version":
			if strings.Count(value, ".") != 3 {
				return AssemblyName{}, &InvalidAssemblyNameError{Value: s, Reason: fmt.Sprintf("version %q must have four parts", value)}
			}
			an.Version = value
		case "culture":
			if !strings.EqualFold(value, NeutralCulture) {
				an.Culture = value
			}
		case "publickeytoken":
			if !strings.EqualFold(value, NullToken) {
				an.PublicKeyToken = strings.ToLower(value)
			}
		default:
			// ProcessorArchitecture, Retargetable and friends do not take
			// part in identity.
		}
	}
	return an, nil
}

// MustParseAssemblyName is like ParseAssemblyName but panics on error.
func MustParseAssemblyName(s string) AssemblyName {
	an, err := ParseAssemblyName(s)
	if err != nil {
		panic(err)
	}
	return an
}
