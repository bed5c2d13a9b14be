// SPDX-License-Identifier: MPL-2.0

// Package config loads cilbind settings using Viper with CUE as the file format.
//
// The file is looked up at $XDG_CONFIG_HOME/cilbind/config.cue on Linux,
// ~/Library/Application Support/cilbind/config.cue on macOS and
// %APPDATA%\cilbind\config.cue on Windows, then at ./config.cue. It is
// validated against the embedded #Config schema before being merged over the
// defaults. CILBIND_* environment variables override both.
package config
