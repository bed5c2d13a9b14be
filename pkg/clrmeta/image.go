// SPDX-License-Identifier: MPL-2.0

package clrmeta

import (
	"fmt"
	"strings"

	"github.com/saferwall/pe"
	pelog "github.com/saferwall/pe/log"
)

// metadata is the parsed CLR section of an image.
type metadata struct {
	file    *pe.File
	tables  map[int]*pe.MetadataTable
	strings []byte
	blob    []byte
}

// parseLog receives saferwall/pe diagnostics. The parser logs metadata
// failures and keeps going, so they are collected here and surfaced as
// MalformedError.
type parseLog struct {
	failures []string
}

func (l *parseLog) Log(level pelog.Level, keyvals ...any) error {
	if level < pelog.LevelWarn {
		return nil
	}
	for i := 1; i < len(keyvals); i += 2 {
		msg, ok := keyvals[i].(string)
		if ok && isMetadataFailure(msg) {
			l.failures = append(l.failures, msg)
		}
	}
	return nil
}

func isMetadataFailure(msg string) bool {
	return strings.Contains(msg, "data directory CLR") || strings.Contains(msg, "metadata table")
}

// options skips every directory except the CLR header.
func options(diag *parseLog) *pe.Options {
	return &pe.Options{
		DisableCertValidation:      true,
		DisableSignatureValidation: true,
		Logger:                     diag,
		OmitExportDirectory:        true,
		OmitImportDirectory:        true,
		OmitExceptionDirectory:     true,
		OmitResourceDirectory:      true,
		OmitSecurityDirectory:      true,
		OmitRelocDirectory:         true,
		OmitDebugDirectory:         true,
		OmitArchitectureDirectory:  true,
		OmitGlobalPtrDirectory:     true,
		OmitTLSDirectory:           true,
		OmitLoadConfigDirectory:    true,
		OmitBoundImportDirectory:   true,
		OmitIATDirectory:           true,
		OmitDelayImportDirectory:   true,
	}
}

// readMetadata parses image and returns its metadata tables and heaps.
func readMetadata(image []byte) (*metadata, error) {
	diag := &parseLog{}
	// Byte-backed files hold no handle; Close would munmap image.
	f, err := pe.NewBytes(image, options(diag))
	if err != nil {
		return nil, fmt.Errorf("failed to read PE headers: %w", err)
	}
	if err := f.Parse(); err != nil {
		return nil, fmt.Errorf("failed to read PE headers: %w", err)
	}
	if len(diag.failures) > 0 {
		return nil, malformed("metadata root", "%s", strings.Join(diag.failures, "; "))
	}
	if !f.HasCLR {
		return nil, ErrNotManaged
	}
	if f.CLR.MetadataTables == nil {
		return nil, malformed("#~ stream", "missing")
	}

	return &metadata{
		file:    f,
		tables:  f.CLR.MetadataTables,
		strings: f.CLR.MetadataStreams["#Strings"],
		blob:    f.CLR.MetadataStreams["#Blob"],
	}, nil
}

// tableRows returns the decoded rows of table, or nil when it is absent.
func tableRows[T any](md *metadata, table int) ([]T, error) {
	t, ok := md.tables[table]
	if !ok || t.CountCols == 0 {
		return nil, nil
	}
	rows, ok := t.Content.([]T)
	if !ok || len(rows) != int(t.CountCols) {
		return nil, malformed(pe.MetadataTableIndexToString(table)+" table", "%d rows declared, none decoded", t.CountCols)
	}
	return rows, nil
}

// str reads a #Strings heap entry.
func (md *metadata) str(index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}
	if uint64(index) >= uint64(len(md.strings)) {
		return "", malformed("#Strings", "index %#x out of range", index)
	}
	return string(md.file.GetStringFromData(index, md.strings)), nil
}

// blobAt reads a length-prefixed blob (II.24.2.4) from the #Blob heap.
func (md *metadata) blobAt(index uint32) ([]byte, error) {
	if index == 0 {
		return nil, nil
	}
	if uint64(index) >= uint64(len(md.blob)) {
		return nil, malformed("#Blob", "index %#x out of range", index)
	}
	rest := md.blob[index:]

	var length, header uint32
	switch b := rest[0]; {
	case b&0x80 == 0:
		length, header = uint32(b), 1
	case b&0xC0 == 0x80:
		if len(rest) < 2 {
			return nil, malformed("#Blob", "truncated length at %#x", index)
		}
		length, header = uint32(b&0x3F)<<8|uint32(rest[1]), 2
	case b&0xE0 == 0xC0:
		if len(rest) < 4 {
			return nil, malformed("#Blob", "truncated length at %#x", index)
		}
		length, header = uint32(b&0x1F)<<24|uint32(rest[1])<<16|uint32(rest[2])<<8|uint32(rest[3]), 4
	default:
		return nil, malformed("#Blob", "bad length prefix %#x at %#x", b, index)
	}

	if uint64(header)+uint64(length) > uint64(len(rest)) {
		return nil, malformed("#Blob", "blob at %#x overruns heap", index)
	}
	return rest[header : header+length], nil
}

// resolutionScopeTables is the tag order of the ResolutionScope coded index.
var resolutionScopeTables = [4]int{pe.Module, pe.ModuleRef, pe.AssemblyRef, pe.TypeRef}

func decodeResolutionScope(v uint32) (table int, rid uint32) {
	return resolutionScopeTables[v&3], v >> 2
}
