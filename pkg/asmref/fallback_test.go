// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/cilbind/cilbind/pkg/cil"
)

func TestNoFallback(t *testing.T) {
	t.Parallel()

	if _, err := (NoFallback{}).Resolve(context.Background(), fooName); !errors.Is(err, ErrAssemblyNotFound) {
		t.Errorf("Resolve() error = %v, want ErrAssemblyNotFound", err)
	}
}

func TestProbingFallbackCandidates(t *testing.T) {
	t.Parallel()

	p := NewProbingFallback(nil, newFakeLoader(), []string{"mem://localhost/gac"}, []string{"mem://localhost/lib"})

	tests := []struct {
		name string
		in   cil.AssemblyName
		want []string
	}{
		{
			name: "strong named neutral",
			in:   fooName,
			want: []string{
				"mem://localhost/gac/Foo/1.0.0.0__0123456789abcdef/Foo.dll",
				"mem://localhost/gac/Foo/v4.0_1.0.0.0__0123456789abcdef/Foo.dll",
				"mem://localhost/lib/Foo.dll",
				"mem://localhost/lib/Foo.exe",
				"mem://localhost/lib/Foo/Foo.dll",
			},
		},
		{
			name: "culture specific",
			in:   cil.AssemblyName{Name: "Foo.resources", Version: "1.0.0.0", Culture: "de", PublicKeyToken: "0123456789abcdef"},
			want: []string{
				"mem://localhost/gac/Foo.resources/1.0.0.0_de_0123456789abcdef/Foo.resources.dll",
				"mem://localhost/gac/Foo.resources/v4.0_1.0.0.0_de_0123456789abcdef/Foo.resources.dll",
				"mem://localhost/lib/Foo.resources.dll",
				"mem://localhost/lib/Foo.resources.exe",
				"mem://localhost/lib/Foo.resources/Foo.resources.dll",
			},
		},
		{
			name: "weak named skips the cache",
			in:   cil.AssemblyName{Name: "Foo", Version: "1.0.0.0"},
			want: []string{
				"mem://localhost/lib/Foo.dll",
				"mem://localhost/lib/Foo.exe",
				"mem://localhost/lib/Foo/Foo.dll",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := p.Candidates(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("Candidates() =\n%v\nwant\n%v", got, tt.want)
			}
		})
	}
}

func TestProbingFallbackResolve(t *testing.T) {
	t.Parallel()

	t.Run("global assembly cache", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		want := env.add(t, "gac/Foo/v4.0_1.0.0.0__0123456789abcdef", "Foo.dll", fooName)
		p := NewProbingFallback(env.fs, env.loader, []string{env.dir("gac")}, nil)

		got, err := p.Resolve(context.Background(), fooName)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != want {
			t.Errorf("Resolve() = %v, want %s", got, want.location)
		}
	})

	t.Run("probing subdirectory", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		want := env.add(t, "lib/Foo", "Foo.dll", fooName)
		p := NewProbingFallback(env.fs, env.loader, nil, []string{env.dir("lib")})

		got, err := p.Resolve(context.Background(), fooName)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != want {
			t.Errorf("Resolve() = %v, want %s", got, want.location)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		p := NewProbingFallback(env.fs, env.loader, []string{env.dir("gac")}, []string{env.dir("lib")})

		if _, err := p.Resolve(context.Background(), fooName); !errors.Is(err, ErrAssemblyNotFound) {
			t.Errorf("Resolve() error = %v, want ErrAssemblyNotFound", err)
		}
	})

	t.Run("unreadable candidate", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		bad := env.add(t, "lib", "Foo.dll", fooName)
		env.loader.loadErr[bad.location] = errBroken
		p := NewProbingFallback(env.fs, env.loader, nil, []string{env.dir("lib")})

		_, err := p.Resolve(context.Background(), fooName)
		if !errors.Is(err, errBroken) || errors.Is(err, ErrAssemblyNotFound) {
			t.Errorf("Resolve() error = %v, want load failure", err)
		}
	})
}

func TestResolverUsesProbingFallback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.add(t, "lib", "Foo.dll", fooName, "N.Bar")
	fb := NewProbingFallback(env.fs, env.loader, nil, []string{env.dir("lib")})
	r := env.resolver(t, WithLogger(quietLog), WithFallback(fb))

	def, err := r.GetTypeDefinition(context.Background(), typeRef(fooName, "N.Bar"))
	if err != nil {
		t.Fatalf("GetTypeDefinition() error = %v", err)
	}
	if def == nil || def.Name != "N.Bar" {
		t.Errorf("GetTypeDefinition() = %+v", def)
	}
}

func TestDefaultGACRoots(t *testing.T) {
	t.Parallel()

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	tests := []struct {
		name     string
		goos     string
		vars     map[string]string
		contains string
	}{
		{"windows", "windows", map[string]string{"WINDIR": `D:\Win`}, filepath.Join(`D:\Win`, "Microsoft.NET", "assembly", "GAC_MSIL")},
		{"windows default", "windows", nil, filepath.Join(`C:\Windows`, "assembly", "GAC_MSIL")},
		{"linux", "linux", nil, "/usr/lib/mono/gac"},
		{"mono prefix", "linux", map[string]string{"MONO_PREFIX": "/opt/mono"}, filepath.Join("/opt/mono", "lib", "mono", "gac")},
		{"darwin", "darwin", nil, "/Library/Frameworks/Mono.framework/Versions/Current/lib/mono/gac"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			roots := DefaultGACRoots(tt.goos, env(tt.vars))
			if !slices.Contains(roots, tt.contains) {
				t.Errorf("DefaultGACRoots(%s) = %v, want it to contain %q", tt.goos, roots, tt.contains)
			}
		})
	}
}
