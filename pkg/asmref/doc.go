// SPDX-License-Identifier: MPL-2.0

// Package asmref resolves symbolic type references to the concrete type
// definitions they name.
//
// A Resolver searches an input directory and then any extra folders for
// <Name>.dll and <Name>.exe, accepting only a file whose assembly identity
// matches the requested one exactly. When the search path has no match it
// delegates to a Fallback. Resolved assemblies are cached by identity for
// the resolver's lifetime; failures are not cached.
package asmref
