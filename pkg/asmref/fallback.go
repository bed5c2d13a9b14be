// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cilbind/cilbind/pkg/cil"
	"github.com/cilbind/cilbind/pkg/fspath"

	"github.com/viant/afs"
)

// gacPrefixes are the version directory prefixes of the two global assembly
// cache layouts: Mono and .NET 2 use none, .NET 4 uses "v4.0_".
var gacPrefixes = []string{"", "v4.0_"}

type (
	// Fallback is consulted when the search path has no exact match. It
	// returns ErrAssemblyNotFound when it has no candidate either.
	Fallback interface {
		Resolve(ctx context.Context, name cil.AssemblyName) (Module, error)
	}

	// NoFallback never finds anything.
	NoFallback struct{}

	// ProbingFallback looks in global assembly cache roots and then in plain
	// probing directories.
	ProbingFallback struct {
		// GACRoots hold <Name>/<version dir>/<Name>.dll trees.
		GACRoots []string
		// ProbingPaths are searched for <Name>.dll, <Name>.exe and
		// <Name>/<Name>.dll.
		ProbingPaths []string

		loader Loader
		fs     afs.Service
	}
)

// Resolve implements Fallback.
func (NoFallback) Resolve(context.Context, cil.AssemblyName) (Module, error) {
	return nil, ErrAssemblyNotFound
}

// NewProbingFallback creates a fallback over the given roots. A nil fs uses
// afs.New(); a nil loader reads metadata through fs.
func NewProbingFallback(fs afs.Service, loader Loader, gacRoots, probingPaths []string) *ProbingFallback {
	if fs == nil {
		fs = afs.New()
	}
	if loader == nil {
		loader = NewMetadataLoader(fs)
	}
	return &ProbingFallback{
		GACRoots:     gacRoots,
		ProbingPaths: probingPaths,
		loader:       loader,
		fs:           fs,
	}
}

// Candidates returns every location the fallback would try for name, in
// order.
func (p *ProbingFallback) Candidates(name cil.AssemblyName) []string {
	var out []string
	if name.HasToken() {
		culture := name.Culture
		if name.IsNeutral() {
			culture = ""
		}
		for _, root := range p.GACRoots {
			for _, prefix := range gacPrefixes {
				versionDir := fmt.Sprintf("%s%s_%s_%s", prefix, name.Version, culture, name.PublicKeyToken)
				out = append(out, fspath.Join(root, name.Name, versionDir, name.Name+".dll"))
			}
		}
	}
	for _, dir := range p.ProbingPaths {
		for _, ext := range DefaultExtensions {
			out = append(out, fspath.Join(dir, name.Name+ext))
		}
		out = append(out, fspath.Join(dir, name.Name, name.Name+".dll"))
	}
	return out
}

// Resolve loads the first existing candidate. A candidate that exists but
// cannot be read is an error rather than a miss.
func (p *ProbingFallback) Resolve(ctx context.Context, name cil.AssemblyName) (Module, error) {
	for _, candidate := range p.Candidates(name) {
		exists, err := p.fs.Exists(ctx, candidate)
		if err != nil || !exists {
			continue
		}
		mod, err := p.loader.Load(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback candidate %s: %w", candidate, err)
		}
		return mod, nil
	}
	return nil, ErrAssemblyNotFound
}

// DefaultGACRoots returns the platform's global assembly cache roots.
func DefaultGACRoots(goos string, getenv func(string) string) []string {
	if goos == "windows" {
		windir := getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{
			filepath.Join(windir, "Microsoft.NET", "assembly", "GAC_MSIL"),
			filepath.Join(windir, "assembly", "GAC_MSIL"),
			filepath.Join(windir, "assembly", "GAC"),
		}
	}

	var roots []string
	if prefix := getenv("MONO_PREFIX"); prefix != "" {
		roots = append(roots, filepath.Join(prefix, "lib", "mono", "gac"))
	}
	if goos == "darwin" {
		roots = append(roots, "/Library/Frameworks/Mono.framework/Versions/Current/lib/mono/gac")
	}
	return append(roots, "/usr/lib/mono/gac", "/usr/local/lib/mono/gac")
}
