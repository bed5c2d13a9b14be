// SPDX-License-Identifier: MPL-2.0

// Package clrmeta reads the ECMA-335 metadata of managed PE images
// (.dll/.exe assemblies). PE and table decoding is github.com/saferwall/pe;
// this package maps its rows into cil values.
//
// It reads exactly what reference resolution needs:
//   - [ReadIdentity]: the assembly's declared name, without building a type table
//   - [Parse] / [Loader.Load]: identity, type definitions keyed by full path
//     (nested types joined with "/"), assembly references and type references
//
// Method bodies, signatures, custom attributes and resources are never decoded.
// Files are fetched through an afs.Service, so assemblies may live on local disk
// or behind any afs URL scheme.
package clrmeta
