// SPDX-License-Identifier: MPL-2.0

package cil

import (
	"errors"
	"testing"
)

func TestAssemblyNameFullName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		an       AssemblyName
		expected Identity
	}{
		{
			name:     "defaults",
			an:       AssemblyName{Name: "Foo"},
			expected: "Foo, Version=0.0.0.0, Culture=neutral, PublicKeyToken=null",
		},
		{
			name:     "signed",
			an:       AssemblyName{Name: "System.Xml", Version: "4.0.0.0", PublicKeyToken: "b77a5c561934e089"},
			expected: "System.Xml, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089",
		},
		{
			name:     "satellite",
			an:       AssemblyName{Name: "App.resources", Version: "1.2.3.4", Culture: "de-DE"},
			expected: "App.resources, Version=1.2.3.4, Culture=de-DE, PublicKeyToken=null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.an.FullName(); got != tt.expected {
				t.Errorf("FullName() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseAssemblyName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected AssemblyName
		wantErr  bool
	}{
		{
			name:     "simple name only",
			input:    "Foo",
			expected: AssemblyName{Name: "Foo"},
		},
		{
			name:     "name and version",
			input:    "Foo, Version=1.0.0.0",
			expected: AssemblyName{Name: "Foo", Version: "1.0.0.0"},
		},
		{
			name:     "full display name",
			input:    "mscorlib, Version=4.0.0.0, Culture=neutral, PublicKeyToken=B77A5C561934E089",
			expected: AssemblyName{Name: "mscorlib", Version: "4.0.0.0", PublicKeyToken: "b77a5c561934e089"},
		},
		{
			name:     "extra components ignored",
			input:    "Foo, Version=1.0.0.0, ProcessorArchitecture=MSIL",
			expected: AssemblyName{Name: "Foo", Version: "1.0.0.0"},
		},
		{
			name:    "empty",
			input:   "  ",
			wantErr: true,
		},
		{
			name:    "bad version",
			input:   "Foo, Version=1.0",
			wantErr: true,
		},
		{
			name:    "component without value",
			input:   "Foo, Version",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAssemblyName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAssemblyName) {
					t.Fatalf("ParseAssemblyName(%q) error = %v, want ErrInvalidAssemblyName", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAssemblyName(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseAssemblyName(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseAssemblyNameRoundTrip(t *testing.T) {
	t.Parallel()

	for _, full := range []Identity{
		"Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null",
		"System.Core, Version=3.5.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089",
		"App.resources, Version=2.0.0.0, Culture=fr, PublicKeyToken=null",
	} {
		an, err := ParseAssemblyName(string(full))
		if err != nil {
			t.Fatalf("ParseAssemblyName(%q) error = %v", full, err)
		}
		if got := an.FullName(); got != full {
			t.Errorf("round trip of %q = %q", full, got)
		}
	}
}
