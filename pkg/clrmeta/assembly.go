// SPDX-License-Identifier: MPL-2.0

package clrmeta

import (
	"crypto/sha1" //nolint:gosec // public key tokens are defined over SHA-1
	"encoding/hex"
	"fmt"

	"github.com/cilbind/cilbind/pkg/cil"

	"github.com/saferwall/pe"
)

// assemblyRefFlagPublicKey marks an AssemblyRef whose blob is a full public
// key rather than a token.
const assemblyRefFlagPublicKey = 0x0001

// Assembly is a loaded assembly manifest module.
type Assembly struct {
	name       cil.AssemblyName
	location   string
	moduleName string

	types    map[string]*cil.TypeDefinition
	ordered  []*cil.TypeDefinition
	refs     []cil.AssemblyName
	typeRefs []*cil.TypeReference
}

// Name returns the declared identity of the assembly.
func (a *Assembly) Name() cil.AssemblyName { return a.name }

// Location returns where the assembly was loaded from.
func (a *Assembly) Location() string { return a.location }

// ModuleName returns the manifest module's file name (Module table row 1).
func (a *Assembly) ModuleName() string { return a.moduleName }

// Type looks up a definition by full path, e.g. "N.Outer/Inner".
func (a *Assembly) Type(path string) (*cil.TypeDefinition, bool) {
	def, ok := a.types[path]
	return def, ok
}

// Types returns every definition in TypeDef table order.
func (a *Assembly) Types() []*cil.TypeDefinition {
	out := make([]*cil.TypeDefinition, len(a.ordered))
	copy(out, a.ordered)
	return out
}

// AssemblyReferences returns the AssemblyRef table.
func (a *Assembly) AssemblyReferences() []cil.AssemblyName {
	out := make([]cil.AssemblyName, len(a.refs))
	copy(out, a.refs)
	return out
}

// TypeReferences returns the TypeRef table in row order.
func (a *Assembly) TypeReferences() []*cil.TypeReference {
	out := make([]*cil.TypeReference, len(a.typeRefs))
	copy(out, a.typeRefs)
	return out
}

// ParseIdentity reads only the Assembly row of an image.
func ParseIdentity(image []byte) (cil.AssemblyName, error) {
	md, err := readMetadata(image)
	if err != nil {
		return cil.AssemblyName{}, err
	}
	return readAssemblyRow(md)
}

// Parse reads the full resolution model of an image. location is recorded
// verbatim and only used for reporting.
func Parse(image []byte, location string) (*Assembly, error) {
	md, err := readMetadata(image)
	if err != nil {
		return nil, err
	}

	name, err := readAssemblyRow(md)
	if err != nil {
		return nil, err
	}
	a := &Assembly{name: name, location: location, types: make(map[string]*cil.TypeDefinition)}

	modules, err := tableRows[pe.ModuleTableRow](md, pe.Module)
	if err != nil {
		return nil, err
	}
	if len(modules) > 0 {
		if a.moduleName, err = md.str(modules[0].Name); err != nil {
			return nil, err
		}
	}
	if err := a.readTypeDefs(md); err != nil {
		return nil, err
	}
	if err := a.readAssemblyRefs(md); err != nil {
		return nil, err
	}
	if err := a.readTypeRefs(md); err != nil {
		return nil, err
	}
	return a, nil
}

func readAssemblyRow(md *metadata) (cil.AssemblyName, error) {
	rows, err := tableRows[pe.AssemblyTableRow](md, pe.Assembly)
	if err != nil {
		return cil.AssemblyName{}, err
	}
	if len(rows) == 0 {
		return cil.AssemblyName{}, ErrNoAssembly
	}
	row := rows[0]

	publicKey, err := md.blobAt(row.PublicKey)
	if err != nil {
		return cil.AssemblyName{}, err
	}
	name, err := md.str(row.Name)
	if err != nil {
		return cil.AssemblyName{}, err
	}
	culture, err := md.str(row.Culture)
	if err != nil {
		return cil.AssemblyName{}, err
	}
	if name == "" {
		return cil.AssemblyName{}, malformed("Assembly table", "empty assembly name")
	}

	return cil.AssemblyName{
		Name:           name,
		Version:        formatVersion(row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber),
		Culture:        normalizeCulture(culture),
		PublicKeyToken: tokenOf(publicKey),
	}, nil
}

func (a *Assembly) readTypeDefs(md *metadata) error {
	rows, err := tableRows[pe.TypeDefTableRow](md, pe.TypeDef)
	if err != nil {
		return err
	}
	n := uint32(len(rows))
	defs := make([]*cil.TypeDefinition, n)
	for i, row := range rows {
		name, err := md.str(row.TypeName)
		if err != nil {
			return err
		}
		namespace, err := md.str(row.TypeNamespace)
		if err != nil {
			return err
		}
		defs[i] = &cil.TypeDefinition{
			Namespace: namespace,
			Name:      name,
			Flags:     row.Flags,
			Assembly:  a.name,
			Token:     uint32(pe.TypeDef)<<24 | uint32(i+1),
		}
	}

	nesting, err := tableRows[pe.NestedClassTableRow](md, pe.NestedClass)
	if err != nil {
		return err
	}
	for i, row := range nesting {
		nested, enclosing := row.NestedClass, row.EnclosingClass
		if nested == 0 || nested > n || enclosing == 0 || enclosing > n || nested == enclosing {
			return malformed("NestedClass table", "row %d links %d to %d", i+1, nested, enclosing)
		}
		defs[nested-1].DeclaringType = defs[enclosing-1]
	}
	if err := checkAcyclic(len(defs), func(i int) int {
		if d := defs[i].DeclaringType; d != nil {
			return int(d.Token&0xFFFFFF) - 1
		}
		return -1
	}); err != nil {
		return malformed("NestedClass table", "%v", err)
	}

	a.ordered = defs
	for _, def := range defs {
		key := def.FullName()
		if _, dup := a.types[key]; !dup {
			a.types[key] = def
		}
	}
	return nil
}

func (a *Assembly) readAssemblyRefs(md *metadata) error {
	rows, err := tableRows[pe.AssemblyRefTableRow](md, pe.AssemblyRef)
	if err != nil {
		return err
	}
	a.refs = make([]cil.AssemblyName, len(rows))
	for i, row := range rows {
		keyOrToken, err := md.blobAt(row.PublicKeyOrToken)
		if err != nil {
			return err
		}
		name, err := md.str(row.Name)
		if err != nil {
			return err
		}
		culture, err := md.str(row.Culture)
		if err != nil {
			return err
		}

		token := ""
		if row.Flags&assemblyRefFlagPublicKey != 0 {
			token = tokenOf(keyOrToken)
		} else if len(keyOrToken) > 0 {
			token = hex.EncodeToString(keyOrToken)
		}
		a.refs[i] = cil.AssemblyName{
			Name:           name,
			Version:        formatVersion(row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber),
			Culture:        normalizeCulture(culture),
			PublicKeyToken: token,
		}
	}
	return nil
}

func (a *Assembly) readTypeRefs(md *metadata) error {
	rows, err := tableRows[pe.TypeRefTableRow](md, pe.TypeRef)
	if err != nil {
		return err
	}
	moduleRefs, err := tableRows[pe.ModuleRefTableRow](md, pe.ModuleRef)
	if err != nil {
		return err
	}

	n := uint32(len(rows))
	refs := make([]*cil.TypeReference, n)
	parents := make([]int, n)
	for i, row := range rows {
		name, err := md.str(row.TypeName)
		if err != nil {
			return err
		}
		namespace, err := md.str(row.TypeNamespace)
		if err != nil {
			return err
		}
		ref := &cil.TypeReference{Namespace: namespace, Name: name}
		parents[i] = -1

		table, scopeRID := decodeResolutionScope(row.ResolutionScope)
		switch {
		case scopeRID == 0:
			// A null scope means the type is found through the ExportedType table.
			ref.Scope = &cil.ModuleReference{Name: a.moduleName}
		case table == pe.AssemblyRef && scopeRID <= uint32(len(a.refs)):
			ref.Scope = cil.NewAssemblyScope(a.refs[scopeRID-1])
		case table == pe.TypeRef && scopeRID <= n:
			parents[i] = int(scopeRID) - 1
		case table == pe.ModuleRef && scopeRID <= uint32(len(moduleRefs)):
			modName, err := md.str(moduleRefs[scopeRID-1].Name)
			if err != nil {
				return err
			}
			ref.Scope = &cil.ModuleReference{Name: modName}
		case table == pe.Module:
			ref.Scope = &cil.ModuleReference{Name: a.moduleName}
		default:
			return malformed("TypeRef table", "row %d has bad resolution scope %#x", i+1, row.ResolutionScope)
		}
		refs[i] = ref
	}

	if err := checkAcyclic(len(refs), func(i int) int { return parents[i] }); err != nil {
		return malformed("TypeRef table", "%v", err)
	}
	for i, p := range parents {
		if p >= 0 {
			refs[i].DeclaringType = refs[p]
		}
	}
	a.typeRefs = refs
	return nil
}

// checkAcyclic verifies that following parent links from any node ends.
func checkAcyclic(n int, parent func(int) int) error {
	for start := 0; start < n; start++ {
		steps := 0
		for i := parent(start); i >= 0; i = parent(i) {
			steps++
			if steps > n {
				return fmt.Errorf("nesting cycle through row %d", start+1)
			}
		}
	}
	return nil
}

func formatVersion(major, minor, build, revision uint16) string {
	return fmt.Sprintf("%d.%d.%d.%d", major, minor, build, revision)
}

func normalizeCulture(c string) string {
	if c == cil.NeutralCulture {
		return ""
	}
	return c
}

// tokenOf derives the public key token: the last eight bytes of the key's
// SHA-1 hash in reverse order.
func tokenOf(publicKey []byte) string {
	if len(publicKey) == 0 {
		return ""
	}
	sum := sha1.Sum(publicKey) //nolint:gosec // see import
	token := make([]byte, 8)
	for i := range token {
		token[i] = sum[len(sum)-1-i]
	}
	return hex.EncodeToString(token)
}
