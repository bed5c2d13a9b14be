// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the cilbind CLI commands.
//
// The root command resolves type references against a search path made of a
// primary input directory and extra folders, falling back to GAC and probing
// paths from the configuration. Subcommands inspect single assemblies
// (identity, types) and whole reference sets (refs).
package cmd
