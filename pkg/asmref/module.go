// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"context"

	"github.com/cilbind/cilbind/pkg/cil"
	"github.com/cilbind/cilbind/pkg/clrmeta"

	"github.com/viant/afs"
)

// DefaultExtensions are tried in order for every search directory.
var DefaultExtensions = []string{".dll", ".exe"}

type (
	// Module is a loaded assembly whose type table can be queried by full
	// path ("N.Outer/Inner").
	Module interface {
		Name() cil.AssemblyName
		Location() string
		Type(path string) (*cil.TypeDefinition, bool)
	}

	// Loader reads assemblies from a location. Probe is the cheap identity
	// read; Load builds the full module.
	Loader interface {
		Probe(ctx context.Context, URL string) (cil.AssemblyName, error)
		Load(ctx context.Context, URL string) (Module, error)
	}

	metadataLoader struct {
		l *clrmeta.Loader
	}
)

// NewMetadataLoader returns a Loader backed by the clrmeta reader.
func NewMetadataLoader(fs afs.Service) Loader {
	return &metadataLoader{l: clrmeta.NewLoader(fs)}
}

func (m *metadataLoader) Probe(ctx context.Context, URL string) (cil.AssemblyName, error) {
	return m.l.Probe(ctx, URL)
}

func (m *metadataLoader) Load(ctx context.Context, URL string) (Module, error) {
	a, err := m.l.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	return a, nil
}
