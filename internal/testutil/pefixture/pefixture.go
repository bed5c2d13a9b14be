// SPDX-License-Identifier: MPL-2.0

// Package pefixture writes minimal managed PE images for tests. The images
// carry a real metadata root with Module, TypeRef, TypeDef, Assembly,
// AssemblyRef and NestedClass tables, which is all the metadata reader
// looks at.
package pefixture

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cilbind/cilbind/pkg/cil"
)

const (
	fileAlignment    = 0x200
	sectionAlignment = 0x2000
	textRVA          = 0x2000
	cliHeaderSize    = 72
)

type (
	// Assembly describes the image to write.
	Assembly struct {
		Name cil.AssemblyName
		// PublicKey, when set, is stored in the Assembly row. Name.PublicKeyToken
		// is ignored in that case; the reader derives it from the key.
		PublicKey  []byte
		Types      []Type
		References []cil.AssemblyName
		TypeRefs   []TypeRef
	}

	// Type is a type definition with optional nested types.
	Type struct {
		Namespace string
		Name      string
		Nested    []Type
	}

	// TypeRef is a TypeRef row. Exactly one of Reference (index into
	// Assembly.References) or Parent (index into Assembly.TypeRefs) is >= 0;
	// both negative means the current module.
	TypeRef struct {
		Reference int
		Parent    int
		Namespace string
		Name      string
	}
)

// Write builds the image and stores it as dir/file, returning the path.
func Write(t testing.TB, dir, file string, a Assembly) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	if err := os.WriteFile(path, a.Build(), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Build returns the managed PE image bytes.
func (a Assembly) Build() []byte {
	md := a.metadataRoot()

	text := make([]byte, cliHeaderSize, cliHeaderSize+len(md))
	le := binary.LittleEndian
	le.PutUint32(text[0:], cliHeaderSize)
	le.PutUint16(text[4:], 2)
	le.PutUint16(text[6:], 5)
	le.PutUint32(text[8:], textRVA+cliHeaderSize)
	le.PutUint32(text[12:], uint32(len(md)))
	le.PutUint32(text[16:], 1) // COMIMAGE_FLAGS_ILONLY
	text = append(text, md...)

	return buildPE(text, true)
}

// Native returns a PE image without a CLI header.
func Native() []byte {
	return buildPE(make([]byte, 64), false)
}

func buildPE(text []byte, managed bool) []byte {
	rawSize := align(uint32(len(text)), fileAlignment)

	var buf bytes.Buffer
	dos := make([]byte, 0x80)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x80)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	oh := pe.OptionalHeader32{
		Magic:                       0x10b,
		MajorLinkerVersion:          8,
		SizeOfCode:                  rawSize,
		BaseOfCode:                  textRVA,
		ImageBase:                   0x400000,
		SectionAlignment:            sectionAlignment,
		FileAlignment:               fileAlignment,
		MajorOperatingSystemVersion: 4,
		MajorSubsystemVersion:       4,
		SizeOfImage:                 textRVA + align(uint32(len(text)), sectionAlignment),
		SizeOfHeaders:               fileAlignment,
		Subsystem:                   3,
		SizeOfStackReserve:          0x100000,
		SizeOfStackCommit:           0x1000,
		SizeOfHeapReserve:           0x100000,
		SizeOfHeapCommit:            0x1000,
		NumberOfRvaAndSizes:         16,
	}
	if managed {
		oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR] = pe.DataDirectory{VirtualAddress: textRVA, Size: cliHeaderSize}
	}

	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(oh)),
		Characteristics:      0x2102,
	}
	sh := pe.SectionHeader32{
		VirtualSize:      uint32(len(text)),
		VirtualAddress:   textRVA,
		SizeOfRawData:    rawSize,
		PointerToRawData: fileAlignment,
		Characteristics:  0x60000020,
	}
	copy(sh.Name[:], ".text")

	mustWrite(&buf, fh)
	mustWrite(&buf, oh)
	mustWrite(&buf, sh)
	buf.Write(make([]byte, fileAlignment-buf.Len()))

	buf.Write(text)
	buf.Write(make([]byte, int(rawSize)-len(text)))
	return buf.Bytes()
}

func (a Assembly) metadataRoot() []byte {
	strs := newStringHeap()
	blobs := newBlobHeap()

	var (
		typeDefRows [][]uint16
		nestedRows  [][2]uint16
		flags       []uint32
	)
	addType := func(ns, name string, flag uint32) uint16 {
		typeDefRows = append(typeDefRows, []uint16{strs.add(name), strs.add(ns), 0, 1, 1})
		flags = append(flags, flag)
		return uint16(len(typeDefRows))
	}
	var walk func(t Type, enclosing uint16)
	walk = func(t Type, enclosing uint16) {
		flag := uint32(0x00100001) // public, beforefieldinit
		if enclosing != 0 {
			flag = 0x00100002 // nested public
		}
		rid := addType(t.Namespace, t.Name, flag)
		if enclosing != 0 {
			nestedRows = append(nestedRows, [2]uint16{rid, enclosing})
		}
		for _, n := range t.Nested {
			walk(n, rid)
		}
	}
	addType("", "<Module>", 0)
	for _, t := range a.Types {
		walk(t, 0)
	}

	var tables bytes.Buffer
	rows := map[int]int{0x00: 1, 0x02: len(typeDefRows), 0x20: 1}
	if len(a.TypeRefs) > 0 {
		rows[0x01] = len(a.TypeRefs)
	}
	if len(a.References) > 0 {
		rows[0x23] = len(a.References)
	}
	if len(nestedRows) > 0 {
		rows[0x29] = len(nestedRows)
	}

	// Module
	moduleName := a.Name.Name + ".dll"
	put16(&tables, 0, strs.add(moduleName), 1, 0, 0)

	// TypeRef
	for _, tr := range a.TypeRefs {
		scope := uint16(1<<2 | 0) // Module row 1
		switch {
		case tr.Reference >= 0:
			scope = uint16((tr.Reference+1)<<2 | 2)
		case tr.Parent >= 0:
			scope = uint16((tr.Parent+1)<<2 | 3)
		}
		put16(&tables, scope, strs.add(tr.Name), strs.add(tr.Namespace))
	}

	// TypeDef
	for i, row := range typeDefRows {
		put32(&tables, flags[i])
		put16(&tables, row...)
	}

	// Assembly
	major, minor, build, rev := splitVersion(a.Name.Version)
	var assemblyFlags uint32
	if len(a.PublicKey) > 0 {
		assemblyFlags = 1
	}
	put32(&tables, 0x8004)
	put16(&tables, major, minor, build, rev)
	put32(&tables, assemblyFlags)
	put16(&tables, blobs.add(a.PublicKey), strs.add(a.Name.Name), strs.add(culture(a.Name)))

	// AssemblyRef
	for _, ref := range a.References {
		major, minor, build, rev := splitVersion(ref.Version)
		token, _ := hex.DecodeString(ref.PublicKeyToken)
		put16(&tables, major, minor, build, rev)
		put32(&tables, 0)
		put16(&tables, blobs.add(token), strs.add(ref.Name), strs.add(culture(ref)), 0)
	}

	// NestedClass
	for _, n := range nestedRows {
		put16(&tables, n[0], n[1])
	}

	var stream bytes.Buffer
	put32(&stream, 0)
	stream.Write([]byte{2, 0, 0, 1})
	var valid uint64
	for t := range rows {
		valid |= 1 << uint(t)
	}
	mustWrite(&stream, valid)
	mustWrite(&stream, uint64(0))
	for t := 0; t < 64; t++ {
		if valid&(1<<uint(t)) != 0 {
			put32(&stream, uint32(rows[t]))
		}
	}
	stream.Write(tables.Bytes())

	guidHeap := make([]byte, 16)
	copy(guidHeap, "cilbind-fixture!")

	return buildRoot([]namedStream{
		{"#~", pad4(stream.Bytes())},
		{"#Strings", pad4(strs.buf.Bytes())},
		{"#Blob", pad4(blobs.buf.Bytes())},
		{"#GUID", guidHeap},
	})
}

type namedStream struct {
	name string
	data []byte
}

func buildRoot(streams []namedStream) []byte {
	version := pad4([]byte("v4.0.30319\x00"))

	headerSize := 16 + len(version) + 4
	for _, s := range streams {
		headerSize += 8 + len(pad4(append([]byte(s.name), 0)))
	}

	var root bytes.Buffer
	put32(&root, 0x424A5342)
	put16(&root, 1, 1)
	put32(&root, 0, uint32(len(version)))
	root.Write(version)
	put16(&root, 0, uint16(len(streams)))

	offset := headerSize
	for _, s := range streams {
		put32(&root, uint32(offset), uint32(len(s.data)))
		root.Write(pad4(append([]byte(s.name), 0)))
		offset += len(s.data)
	}
	for _, s := range streams {
		root.Write(s.data)
	}
	return root.Bytes()
}

type stringHeap struct {
	buf  bytes.Buffer
	seen map[string]uint16
}

func newStringHeap() *stringHeap {
	h := &stringHeap{seen: map[string]uint16{"": 0}}
	h.buf.WriteByte(0)
	return h
}

func (h *stringHeap) add(s string) uint16 {
	if off, ok := h.seen[s]; ok {
		return off
	}
	off := uint16(h.buf.Len())
	h.buf.WriteString(s)
	h.buf.WriteByte(0)
	h.seen[s] = off
	return off
}

type blobHeap struct {
	buf bytes.Buffer
}

func newBlobHeap() *blobHeap {
	h := &blobHeap{}
	h.buf.WriteByte(0)
	return h
}

func (h *blobHeap) add(b []byte) uint16 {
	if len(b) == 0 {
		return 0
	}
	off := uint16(h.buf.Len())
	if len(b) < 0x80 {
		h.buf.WriteByte(byte(len(b)))
	} else {
		h.buf.WriteByte(byte(0x80 | len(b)>>8))
		h.buf.WriteByte(byte(len(b)))
	}
	h.buf.Write(b)
	return off
}

func culture(n cil.AssemblyName) string {
	if n.IsNeutral() {
		return ""
	}
	return n.Culture
}

func splitVersion(v string) (uint16, uint16, uint16, uint16) {
	var parts [4]uint16
	for i, p := range strings.SplitN(v, ".", 4) {
		n, _ := strconv.ParseUint(p, 10, 16)
		parts[i] = uint16(n)
	}
	return parts[0], parts[1], parts[2], parts[3]
}

func put16(buf *bytes.Buffer, values ...uint16) {
	for _, v := range values {
		mustWrite(buf, v)
	}
}

func put32(buf *bytes.Buffer, values ...uint32) {
	for _, v := range values {
		mustWrite(buf, v)
	}
}

func mustWrite(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func align(n, to uint32) uint32 {
	return (n + to - 1) &^ (to - 1)
}
