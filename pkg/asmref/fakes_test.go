// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cilbind/cilbind/pkg/cil"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

var errNoSuchFile = errors.New("no such file")

type (
	fakeModule struct {
		name     cil.AssemblyName
		location string
		types    map[string]*cil.TypeDefinition
	}

	// fakeLoader serves modules registered by URL and counts calls.
	fakeLoader struct {
		mu       sync.Mutex
		modules  map[string]*fakeModule
		probeErr map[string]error
		loadErr  map[string]error
		// loadAs overrides the identity Load reports, so it can disagree
		// with Probe.
		loadAs map[string]cil.AssemblyName
		probes int
		loads    int
	}

	// countingFS counts existence checks on top of a real afs service.
	countingFS struct {
		afs.Service
		exists atomic.Int32
	}

	// stubFallback returns a fixed result and counts calls.
	stubFallback struct {
		mod   Module
		err   error
		calls int
	}

	testEnv struct {
		fs     *countingFS
		loader *fakeLoader
		base   string
	}
)

func (m *fakeModule) Name() cil.AssemblyName { return m.name }
func (m *fakeModule) Location() string       { return m.location }

func (m *fakeModule) Type(path string) (*cil.TypeDefinition, bool) {
	def, ok := m.types[path]
	return def, ok
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		modules:  make(map[string]*fakeModule),
		probeErr: make(map[string]error),
		loadErr:  make(map[string]error),
		loadAs:   make(map[string]cil.AssemblyName),
	}
}

func (l *fakeLoader) Probe(_ context.Context, URL string) (cil.AssemblyName, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.probes++
	if err := l.probeErr[URL]; err != nil {
		return cil.AssemblyName{}, err
	}
	m, ok := l.modules[URL]
	if !ok {
		return cil.AssemblyName{}, errNoSuchFile
	}
	return m.name, nil
}

func (l *fakeLoader) Load(_ context.Context, URL string) (Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	if err := l.loadErr[URL]; err != nil {
		return nil, err
	}
	m, ok := l.modules[URL]
	if !ok {
		return nil, errNoSuchFile
	}
	if name, ok := l.loadAs[URL]; ok {
		return &fakeModule{name: name, location: m.location, types: m.types}, nil
	}
	return m, nil
}

func (l *fakeLoader) calls() (probes, loads int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.probes, l.loads
}

func (c *countingFS) Exists(ctx context.Context, URL string, options ...storage.Option) (bool, error) {
	c.exists.Add(1)
	return c.Service.Exists(ctx, URL, options...)
}

func (f *stubFallback) Resolve(context.Context, cil.AssemblyName) (Module, error) {
	f.calls++
	return f.mod, f.err
}

// newTestEnv returns an in-memory file system rooted at a directory unique
// to the test.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		fs:     &countingFS{Service: afs.New()},
		loader: newFakeLoader(),
		base:   "mem://localhost/asmref/" + strings.ReplaceAll(t.Name(), " ", "_"),
	}
}

// dir returns the URL of a named directory in the environment.
func (e *testEnv) dir(name string) string {
	return url.Join(e.base, name)
}

// add writes dir/fileName and registers a module with the given identity and
// type paths for it.
func (e *testEnv) add(t *testing.T, dir, fileName string, name cil.AssemblyName, typePaths ...string) *fakeModule {
	t.Helper()
	location := url.Join(e.dir(dir), fileName)
	if err := e.fs.Upload(context.Background(), location, file.DefaultFileOsMode, bytes.NewReader([]byte("MZ"))); err != nil {
		t.Fatalf("failed to upload %s: %v", location, err)
	}

	m := &fakeModule{name: name, location: location, types: make(map[string]*cil.TypeDefinition)}
	for _, p := range typePaths {
		m.types[p] = &cil.TypeDefinition{Name: p, Assembly: name}
	}
	e.loader.mu.Lock()
	e.loader.modules[location] = m
	e.loader.mu.Unlock()
	return m
}

func (e *testEnv) resolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithFileSystem(e.fs), WithLoader(e.loader)}, opts...)
	r, err := NewResolver(e.dir("in"), opts...)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}
