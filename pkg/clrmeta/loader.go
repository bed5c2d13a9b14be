// SPDX-License-Identifier: MPL-2.0

package clrmeta

import (
	"context"
	"fmt"

	"github.com/cilbind/cilbind/pkg/cil"

	"github.com/viant/afs"
)

// Loader reads assemblies through an afs.Service.
type Loader struct {
	fs afs.Service
}

// NewLoader creates a Loader. A nil service defaults to afs.New().
func NewLoader(fs afs.Service) *Loader {
	if fs == nil {
		fs = afs.New()
	}
	return &Loader{fs: fs}
}

// Probe reads the declared identity of the assembly at URL without building
// its type table.
func (l *Loader) Probe(ctx context.Context, URL string) (cil.AssemblyName, error) {
	return ReadIdentity(ctx, l.fs, URL)
}

// Load fully reads the assembly at URL.
func (l *Loader) Load(ctx context.Context, URL string) (*Assembly, error) {
	return Open(ctx, l.fs, URL)
}

// ReadIdentity downloads URL and returns its Assembly row.
func ReadIdentity(ctx context.Context, fs afs.Service, URL string) (cil.AssemblyName, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return cil.AssemblyName{}, fmt.Errorf("failed to read %s: %w", URL, err)
	}
	name, err := ParseIdentity(data)
	if err != nil {
		return cil.AssemblyName{}, fmt.Errorf("%s: %w", URL, err)
	}
	return name, nil
}

// Open downloads URL and parses it.
func Open(ctx context.Context, fs afs.Service, URL string) (*Assembly, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", URL, err)
	}
	a, err := Parse(data, URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", URL, err)
	}
	return a, nil
}
