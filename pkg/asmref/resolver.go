// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/cilbind/cilbind/pkg/cil"
	"github.com/cilbind/cilbind/pkg/fspath"

	"github.com/viant/afs"
)

type (
	// Resolver turns type references into type definitions, loading each
	// referenced assembly at most once.
	Resolver struct {
		// inputDir is searched before any extra folder.
		inputDir string

		// extraFolders are searched after inputDir, in registration order.
		extraFolders []string

		// extensions are tried in order inside every directory.
		extensions []string

		loader   Loader
		fallback Fallback
		fs       afs.Service
		logger   *slog.Logger

		// cache holds every resolved assembly by the identity it was
		// requested under. Entries are never evicted.
		cache map[cil.Identity]Module

		// frozen is set by the first resolution; extra folders are fixed
		// from then on.
		frozen bool

		// mu serializes all resolver operations.
		mu sync.Mutex
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// WithExtraFolders registers folders searched after the input directory.
func WithExtraFolders(folders ...string) Option {
	return func(r *Resolver) {
		r.extraFolders = append(r.extraFolders, folders...)
	}
}

// WithLoader replaces the metadata loader.
func WithLoader(l Loader) Option {
	return func(r *Resolver) {
		r.loader = l
	}
}

// WithFallback sets the resolver consulted when the search path has no
// match. The default is NoFallback.
func WithFallback(f Fallback) Option {
	return func(r *Resolver) {
		r.fallback = f
	}
}

// WithFileSystem sets the afs service used for existence checks and, unless
// WithLoader is also given, for reading assemblies.
func WithFileSystem(fs afs.Service) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// WithLogger sets the logger for resolution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a resolver searching inputDir first.
func NewResolver(inputDir string, opts ...Option) (*Resolver, error) {
	if strings.TrimSpace(inputDir) == "" {
		return nil, ErrEmptyInputDir
	}

	r := &Resolver{
		inputDir:   inputDir,
		extensions: DefaultExtensions,
		fallback:   NoFallback{},
		cache:      make(map[cil.Identity]Module),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.fs == nil {
		r.fs = afs.New()
	}
	if r.loader == nil {
		r.loader = NewMetadataLoader(r.fs)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// InputDir returns the primary search directory.
func (r *Resolver) InputDir() string { return r.inputDir }

// ExtraFolders returns a copy of the extra search folders.
func (r *Resolver) ExtraFolders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.extraFolders)
}

// SetExtraFolders replaces the extra search folders. It fails once any
// assembly has been resolved.
func (r *Resolver) SetExtraFolders(folders []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrSearchPathFrozen
	}
	r.extraFolders = slices.Clone(folders)
	return nil
}

// SearchPath returns the directories searched, in precedence order.
func (r *Resolver) SearchPath() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.searchPath()
}

func (r *Resolver) searchPath() []string {
	return append([]string{r.inputDir}, r.extraFolders...)
}

// Cached returns the cached module for an identity, if any.
func (r *Resolver) Cached(id cil.Identity) (Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.cache[id]
	return m, ok
}

// Len returns the number of cached assemblies.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// Modules returns the cached modules ordered by identity.
func (r *Resolver) Modules() []Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]cil.Identity, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Module, len(ids))
	for i, id := range ids {
		out[i] = r.cache[id]
	}
	return out
}

// GetTypeDefinition resolves ref to its concrete definition.
//
//   - nil yields nil
//   - a definition is returned unchanged
//   - a generic instance resolves as its element type
//   - a reference scoped to an assembly is looked up in that assembly
//   - any other scope yields nil
//
// A resolved assembly lacking the type is a MissingTypeError.
func (r *Resolver) GetTypeDefinition(ctx context.Context, ref cil.TypeRef) (*cil.TypeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typeDefinition(ctx, ref)
}

func (r *Resolver) typeDefinition(ctx context.Context, ref cil.TypeRef) (*cil.TypeDefinition, error) {
	switch t := ref.(type) {
	case *cil.TypeDefinition:
		return t, nil
	case *cil.GenericInstance:
		if t == nil {
			return nil, nil
		}
		return r.typeDefinition(ctx, t.ElementType)
	case *cil.TypeReference:
		if t == nil {
			return nil, nil
		}
		scope, ok := t.ResolutionScope().(*cil.AssemblyNameReference)
		if !ok || scope == nil {
			return nil, nil
		}
		mod, err := r.resolveAssembly(ctx, scope.AssemblyName)
		if err != nil {
			return nil, err
		}
		path := cil.FullPath(t)
		def, found := mod.Type(path)
		if !found {
			return nil, &MissingTypeError{Path: path, Assembly: scope.FullName(), Location: mod.Location()}
		}
		return def, nil
	default:
		return nil, nil
	}
}

// ResolveAssembly returns the module for name: from the cache, else the
// first exact match on the search path, else the fallback resolver.
func (r *Resolver) ResolveAssembly(ctx context.Context, name cil.AssemblyName) (Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveAssembly(ctx, name)
}

func (r *Resolver) resolveAssembly(ctx context.Context, name cil.AssemblyName) (Module, error) {
	id := name.FullName()
	if mod, ok := r.cache[id]; ok {
		return mod, nil
	}
	r.frozen = true

	mod, err := r.selfResolve(ctx, name)
	if err != nil {
		return nil, err
	}

	if mod == nil {
		mod, err = r.fallback.Resolve(ctx, name)
		if err != nil && !errors.Is(err, ErrAssemblyNotFound) {
			return nil, fmt.Errorf("failed to resolve %s: %w", id, err)
		}
		// A fallback answering (nil, nil) has not found the assembly either.
		if mod == nil {
			searched := r.searchPath()
			r.logger.Debug("assembly not found", "identity", id, "searched", searched)
			return nil, &UnresolvedDependencyError{Name: name.Name, Identity: id, Searched: searched}
		}
		r.logger.Debug("resolved assembly via fallback", "identity", id, "location", mod.Location())
	}

	r.cache[id] = mod
	return mod, nil
}

// selfResolve walks the search path directory by directory, extension by
// extension, and returns the first candidate whose loaded identity equals
// name exactly. It returns nil, nil when nothing matches.
func (r *Resolver) selfResolve(ctx context.Context, name cil.AssemblyName) (Module, error) {
	id := name.FullName()
	for _, dir := range r.searchPath() {
		for _, ext := range r.extensions {
			candidate := fspath.Join(dir, name.Name+ext)

			exists, err := r.fs.Exists(ctx, candidate)
			if err != nil {
				r.logger.Debug("candidate not accessible", "candidate", candidate, "error", err)
				continue
			}
			if !exists {
				continue
			}

			// A failed probe is a presumptive match; the loaded identity
			// decides.
			probeFailed := false
			probed, err := r.loader.Probe(ctx, candidate)
			switch {
			case err != nil:
				probeFailed = true
				r.logger.Debug("identity probe failed, loading anyway", "candidate", candidate, "error", err)
			case probed.FullName() != id:
				r.logger.Debug("candidate identity mismatch", "candidate", candidate, "want", id, "got", probed.FullName())
				continue
			}

			mod, err := r.loader.Load(ctx, candidate)
			if err != nil {
				if probeFailed {
					r.logger.Debug("candidate failed to load", "candidate", candidate, "error", err)
					continue
				}
				return nil, fmt.Errorf("failed to load %s: %w", candidate, err)
			}
			if got := mod.Name().FullName(); got != id {
				r.logger.Debug("loaded identity mismatch", "candidate", candidate, "want", id, "got", got)
				continue
			}

			r.logger.Debug("resolved assembly", "identity", id, "location", candidate)
			return mod, nil
		}
	}
	return nil, nil
}
