// SPDX-License-Identifier: MPL-2.0

package cil

import "strings"

type (
	// TypeRef is a symbolic pointer to a type. The concrete variants are
	// *TypeDefinition, *TypeReference and *GenericInstance.
	TypeRef interface {
		// FullName returns the type's full path, e.g. "N.Outer/Inner".
		FullName() string
		typeRef()
	}

	// Scope is the owner a TypeReference resolves against. The variants are
	// *AssemblyNameReference and *ModuleReference.
	Scope interface {
		ScopeName() string
		scope()
	}

	// AssemblyNameReference scopes a reference to another assembly.
	AssemblyNameReference struct {
		AssemblyName
	}

	// ModuleReference scopes a reference to a module of the current
	// assembly (or to the current module itself). References with this
	// scope are not resolvable across assemblies.
	ModuleReference struct {
		Name string
	}

	// TypeDefinition is a concrete type owned by exactly one module.
	TypeDefinition struct {
		// Namespace is empty for nested types.
		Namespace string
		Name      string
		// Flags are the raw TypeAttributes from the TypeDef row.
		Flags uint32
		// DeclaringType is the enclosing type of a nested type.
		DeclaringType *TypeDefinition
		// Assembly is the declared identity of the owning assembly.
		Assembly AssemblyName
		// Token is the metadata token (0x02xxxxxx) when read from a module.
		Token uint32
	}

	// TypeReference is an unresolved reference to a type in another scope.
	// A nested reference carries its enclosing reference in DeclaringType and
	// inherits the scope of the outermost one.
	TypeReference struct {
		Scope         Scope
		Namespace     string
		Name          string
		DeclaringType *TypeReference
	}

	// GenericInstance is an instantiation such as List<int>. Only ElementType
	// takes part in resolution.
	GenericInstance struct {
		ElementType TypeRef
		Arguments   []TypeRef
	}
)

func (*TypeDefinition) typeRef()  {}
func (*TypeReference) typeRef()   {}
func (*GenericInstance) typeRef() {}

func (*AssemblyNameReference) scope() {}
func (*ModuleReference) scope()       {}

// ScopeName returns the simple assembly name.
func (r *AssemblyNameReference) ScopeName() string { return r.Name }

// ScopeName returns the module name.
func (r *ModuleReference) ScopeName() string { return r.Name }

// NewAssemblyScope returns a scope pointing at the named assembly.
func NewAssemblyScope(name AssemblyName) *AssemblyNameReference {
	return &AssemblyNameReference{AssemblyName: name}
}

// IsNested reports whether the definition is enclosed by another type.
func (t *TypeDefinition) IsNested() bool { return t.DeclaringType != nil }

// FullName returns the type-table key of the definition.
func (t *TypeDefinition) FullName() string {
	segments := []string{t.Name}
	outer := t
	for outer.DeclaringType != nil {
		outer = outer.DeclaringType
		segments = append(segments, outer.Name)
	}
	return joinPath(outer.Namespace, segments)
}

// IsNested reports whether the reference is enclosed by another reference.
func (r *TypeReference) IsNested() bool { return r.DeclaringType != nil }

// ResolutionScope returns the scope of the outermost declaring reference.
func (r *TypeReference) ResolutionScope() Scope {
	outer := r
	for outer.DeclaringType != nil {
		outer = outer.DeclaringType
	}
	return outer.Scope
}

// FullName returns the type-table key the reference should resolve to.
func (r *TypeReference) FullName() string {
	return FullPath(r)
}

// FullName returns the element type's full name followed by its arguments.
func (g *GenericInstance) FullName() string {
	if g.ElementType == nil {
		return ""
	}
	if len(g.Arguments) == 0 {
		return g.ElementType.FullName()
	}
	args := make([]string, len(g.Arguments))
	for i, a := range g.Arguments {
		if a == nil {
			args[i] = "?"
			continue
		}
		args[i] = a.FullName()
	}
	return g.ElementType.FullName() + "<" + strings.Join(args, ",") + ">"
}

// FullPath builds the lookup key for a reference by walking outward through
// declaring references. A doubly nested Inner in Outer/Middle in namespace N
// yields "N.Outer/Middle/Inner"; a top-level T yields "N.T", or "T" when the
// namespace is empty.
func FullPath(r *TypeReference) string {
	segments := []string{r.Name}
	outer := r
	for outer.DeclaringType != nil {
		outer = outer.DeclaringType
		segments = append(segments, outer.Name)
	}
	return joinPath(outer.Namespace, segments)
}

// joinPath joins innermost-first segments into "ns.Outer/.../Inner".
func joinPath(namespace string, innermostFirst []string) string {
	var sb strings.Builder
	if namespace != "" {
		sb.WriteString(namespace)
		sb.WriteByte('.')
	}
	for i := len(innermostFirst) - 1; i >= 0; i-- {
		sb.WriteString(innermostFirst[i])
		if i > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// ParseTypePath turns a full path such as "N.Outer/Inner" into a reference
// chain scoped to scope. The namespace is everything before the last dot of
// the outermost segment.
func ParseTypePath(scope Scope, path string) *TypeReference {
	segments := strings.Split(path, "/")
	namespace, name := "", segments[0]
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		namespace, name = name[:i], name[i+1:]
	}

	ref := &TypeReference{Scope: scope, Namespace: namespace, Name: name}
	for _, nested := range segments[1:] {
		ref = &TypeReference{Name: nested, DeclaringType: ref}
	}
	return ref
}
