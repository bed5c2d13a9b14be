// SPDX-License-Identifier: MPL-2.0

// Package cil holds the symbolic model shared by the metadata reader and the
// reference resolver: assembly names and identities, type definitions, and the
// type-reference variants that point at them.
//
// A type reference is one of:
//   - [*TypeDefinition]: already concrete
//   - [*TypeReference]: a top-level or nested reference scoped to an assembly
//     or module
//   - [*GenericInstance]: a generic instantiation wrapping its element type
//
// [FullPath] flattens a (possibly nested) reference into the key used by a
// module's type table, e.g. "N.Outer/Middle/Inner".
package cil
