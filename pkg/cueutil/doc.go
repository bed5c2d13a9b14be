// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema and
// decodes them into Go values.
//
// Every caller follows the same flow: compile the schema, compile the user
// document and unify it with a schema definition, then validate and decode.
// Errors are reported as "<file>: <json path>: <message>".
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	values, err := cueutil.DecodeMap(schema, data, "#Config", cueutil.WithFilename(path))
package cueutil
