// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of markdown guidance
// rendered with glamour when a cilbind command fails.
package issue
