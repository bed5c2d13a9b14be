// SPDX-License-Identifier: MPL-2.0

package clrmeta

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cilbind/cilbind/internal/testutil/pefixture"
	"github.com/cilbind/cilbind/pkg/cil"

	"github.com/saferwall/pe"
	pelog "github.com/saferwall/pe/log"
	"github.com/viant/afs"
)

func sampleAssembly() pefixture.Assembly {
	return pefixture.Assembly{
		Name: cil.AssemblyName{Name: "Foo", Version: "1.2.3.4"},
		Types: []pefixture.Type{
			{Namespace: "N", Name: "Bar"},
			{Namespace: "N", Name: "Outer", Nested: []pefixture.Type{
				{Name: "Middle", Nested: []pefixture.Type{{Name: "Inner"}}},
			}},
			{Name: "Global"},
		},
		References: []cil.AssemblyName{
			{Name: "mscorlib", Version: "4.0.0.0", PublicKeyToken: "b77a5c561934e089"},
			{Name: "Lib", Version: "2.0.0.0"},
		},
		TypeRefs: []pefixture.TypeRef{
			{Reference: 0, Parent: -1, Namespace: "System", Name: "Object"},
			{Reference: 1, Parent: -1, Namespace: "L", Name: "Outer"},
			{Reference: -1, Parent: 1, Name: "Inner"},
			{Reference: -1, Parent: -1, Namespace: "N", Name: "Local"},
		},
	}
}

func TestParseIdentity(t *testing.T) {
	t.Parallel()

	name, err := ParseIdentity(sampleAssembly().Build())
	if err != nil {
		t.Fatalf("ParseIdentity() error = %v", err)
	}

	want := cil.Identity("Foo, Version=1.2.3.4, Culture=neutral, PublicKeyToken=null")
	if name.FullName() != want {
		t.Errorf("FullName() = %q, want %q", name.FullName(), want)
	}
}

func TestParseIdentityDerivesPublicKeyToken(t *testing.T) {
	t.Parallel()

	a := sampleAssembly()
	a.PublicKey = bytes.Repeat([]byte{0x24}, 160)

	name, err := ParseIdentity(a.Build())
	if err != nil {
		t.Fatalf("ParseIdentity() error = %v", err)
	}
	if name.PublicKeyToken != tokenOf(a.PublicKey) {
		t.Errorf("PublicKeyToken = %q, want %q", name.PublicKeyToken, tokenOf(a.PublicKey))
	}
	if len(name.PublicKeyToken) != 16 {
		t.Errorf("PublicKeyToken length = %d, want 16", len(name.PublicKeyToken))
	}
}

func TestTokenOf(t *testing.T) {
	t.Parallel()

	// ECMA standard public key; its token is well known.
	ecmaKey := []byte{0, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0}
	if got, want := tokenOf(ecmaKey), "b77a5c561934e089"; got != want {
		t.Errorf("tokenOf(ECMA key) = %q, want %q", got, want)
	}
	if got := tokenOf(nil); got != "" {
		t.Errorf("tokenOf(nil) = %q, want empty", got)
	}
}

func TestParseTypeTable(t *testing.T) {
	t.Parallel()

	a, err := Parse(sampleAssembly().Build(), "mem://test/Foo.dll")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for _, key := range []string{"<Module>", "N.Bar", "N.Outer", "N.Outer/Middle", "N.Outer/Middle/Inner", "Global"} {
		if _, ok := a.Type(key); !ok {
			t.Errorf("Type(%q) not found", key)
		}
	}
	if _, ok := a.Type("N.Inner"); ok {
		t.Error("nested type must not be reachable by its simple name")
	}

	inner, _ := a.Type("N.Outer/Middle/Inner")
	if inner.DeclaringType == nil || inner.DeclaringType.Name != "Middle" {
		t.Fatalf("Inner.DeclaringType = %+v, want Middle", inner.DeclaringType)
	}
	if inner.Assembly.Name != "Foo" {
		t.Errorf("Inner.Assembly = %q, want Foo", inner.Assembly.Name)
	}
	if inner.Token>>24 != pe.TypeDef {
		t.Errorf("Inner.Token = %#x, want TypeDef table", inner.Token)
	}
	if got := len(a.Types()); got != 6 {
		t.Errorf("len(Types()) = %d, want 6", got)
	}
	if a.ModuleName() != "Foo.dll" {
		t.Errorf("ModuleName() = %q, want Foo.dll", a.ModuleName())
	}
	if a.Location() != "mem://test/Foo.dll" {
		t.Errorf("Location() = %q", a.Location())
	}
}

func TestParseReferences(t *testing.T) {
	t.Parallel()

	a, err := Parse(sampleAssembly().Build(), "Foo.dll")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	refs := a.AssemblyReferences()
	if len(refs) != 2 {
		t.Fatalf("len(AssemblyReferences()) = %d, want 2", len(refs))
	}
	if got, want := refs[0].FullName(), cil.Identity("mscorlib, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089"); got != want {
		t.Errorf("refs[0] = %q, want %q", got, want)
	}

	typeRefs := a.TypeReferences()
	if len(typeRefs) != 4 {
		t.Fatalf("len(TypeReferences()) = %d, want 4", len(typeRefs))
	}

	object := typeRefs[0]
	scope, ok := object.ResolutionScope().(*cil.AssemblyNameReference)
	if !ok || scope.Name != "mscorlib" {
		t.Errorf("System.Object scope = %v, want mscorlib", object.ResolutionScope())
	}

	inner := typeRefs[2]
	if inner.FullName() != "L.Outer/Inner" {
		t.Errorf("nested ref FullName() = %q, want L.Outer/Inner", inner.FullName())
	}
	if s, ok := inner.ResolutionScope().(*cil.AssemblyNameReference); !ok || s.Name != "Lib" {
		t.Errorf("nested ref scope = %v, want Lib", inner.ResolutionScope())
	}

	if _, ok := typeRefs[3].ResolutionScope().(*cil.ModuleReference); !ok {
		t.Errorf("module-scoped ref scope = %T, want *cil.ModuleReference", typeRefs[3].ResolutionScope())
	}
}

func TestParseRejectsNativeImage(t *testing.T) {
	t.Parallel()

	if _, err := ParseIdentity(pefixture.Native()); !errors.Is(err, ErrNotManaged) {
		t.Errorf("ParseIdentity(native) error = %v, want ErrNotManaged", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("definitely not a PE file"), "x"); err == nil {
		t.Error("Parse(garbage) expected error")
	}
}

func TestParseRejectsTruncatedMetadata(t *testing.T) {
	t.Parallel()

	// Keep the CLI header, cut the metadata root after its signature.
	image := sampleAssembly().Build()[:0x200+80]
	if _, err := ParseIdentity(image); !errors.Is(err, ErrMalformed) {
		t.Errorf("ParseIdentity(truncated) error = %v, want ErrMalformed", err)
	}
}

func TestTableRowsRejectsUndecodedTable(t *testing.T) {
	t.Parallel()

	md := &metadata{tables: map[int]*pe.MetadataTable{
		pe.TypeDef: {Name: "TypeDef", CountCols: 3, Content: []pe.TypeDefTableRow{}},
	}}
	if _, err := tableRows[pe.TypeDefTableRow](md, pe.TypeDef); !errors.Is(err, ErrMalformed) {
		t.Errorf("tableRows(TypeDef) error = %v, want ErrMalformed", err)
	}
	rows, err := tableRows[pe.NestedClassTableRow](md, pe.NestedClass)
	if err != nil || rows != nil {
		t.Errorf("tableRows(absent) = %v, %v; want nil, nil", rows, err)
	}
}

func TestParseLogKeepsMetadataFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level pelog.Level
		msg   string
		kept  bool
	}{
		{pelog.LevelWarn, "parsing metadata table TypeDef failed with out of boundary", true},
		{pelog.LevelWarn, "failed to parse data directory CLR, reason: out of boundary", true},
		{pelog.LevelError, "rich header parsing failed: not found", false},
		{pelog.LevelDebug, "parsing metadata table Field failed", false},
	}

	for _, tt := range tests {
		diag := &parseLog{}
		_ = diag.Log(tt.level, "msg", tt.msg)
		if got := len(diag.failures) == 1; got != tt.kept {
			t.Errorf("Log(%v, %q) kept = %v, want %v", tt.level, tt.msg, got, tt.kept)
		}
	}
}

func TestBlobLengthPrefixes(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte{7}, 300)
	heap := append([]byte{0, 3, 'a', 'b', 'c', 0x81, 0x2C}, long...)
	md := &metadata{blob: heap}

	short, err := md.blobAt(1)
	if err != nil || string(short) != "abc" {
		t.Errorf("blobAt(1) = %q, %v; want abc", short, err)
	}
	got, err := md.blobAt(5)
	if err != nil || len(got) != 300 {
		t.Errorf("blobAt(5) len = %d, %v; want 300", len(got), err)
	}
	if _, err := md.blobAt(uint32(len(heap))); !errors.Is(err, ErrMalformed) {
		t.Errorf("blobAt(out of range) error = %v, want ErrMalformed", err)
	}
}

func TestLoaderReadsThroughAFS(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := pefixture.Write(t, dir, "Foo.dll", sampleAssembly())

	loader := NewLoader(afs.New())
	ctx := context.Background()

	name, err := loader.Probe(ctx, path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if name.Name != "Foo" {
		t.Errorf("Probe().Name = %q, want Foo", name.Name)
	}

	a, err := loader.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := a.Type("N.Bar"); !ok {
		t.Error("Load() result misses N.Bar")
	}

	if _, err := loader.Probe(ctx, filepath.Join(dir, "Missing.dll")); err == nil {
		t.Error("Probe(missing) expected error")
	}
}
