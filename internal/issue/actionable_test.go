// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

var errNotFound = errors.New("assembly not found")

func TestActionableErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation", &ActionableError{Operation: "resolve assembly"}, "failed to resolve assembly"},
		{"resource", &ActionableError{Operation: "resolve type", Resource: "N.Outer/Inner"}, "failed to resolve type: N.Outer/Inner"},
		{"cause", &ActionableError{Operation: "load configuration", Cause: errNotFound}, "failed to load configuration: assembly not found"},
		{
			"everything",
			&ActionableError{Operation: "resolve assembly", Resource: "Lib", Suggestions: []string{"ignored"}, Cause: errNotFound},
			"failed to resolve assembly: Lib: assembly not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableErrorFormat(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("resolve assembly").
		WithResource("Lib, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null").
		WithSuggestion("Searched /in").
		WithSuggestion("Pass the folder holding Lib.dll with --extra").
		Wrap(&ActionableError{Operation: "read metadata", Cause: errNotFound}).
		Build()

	short := err.Format(false)
	for _, want := range []string{"\n\n  • Searched /in", "\n  • Pass the folder holding Lib.dll with --extra"} {
		if !strings.Contains(short, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, short)
		}
	}
	if strings.Contains(short, "Error chain:") {
		t.Errorf("Format(false) includes the chain:\n%s", short)
	}

	long := err.Format(true)
	for _, want := range []string{"Error chain:", "1. failed to read metadata: assembly not found", "2. assembly not found"} {
		if !strings.Contains(long, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, long)
		}
	}
}

func TestErrorContextBuild(t *testing.T) {
	t.Parallel()

	if got := NewErrorContext().WithResource("Lib.dll").Build(); got != nil {
		t.Errorf("Build() without operation = %v, want nil", got)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}

	err := NewErrorContext().WithOperation("load configuration").Wrap(errNotFound).BuildError()
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("BuildError() = %T, want *ActionableError", err)
	}
	if !errors.Is(err, errNotFound) {
		t.Error("errors.Is() should reach the wrapped cause")
	}
	if len(ae.Suggestions) != 0 || ae.Resource != "" {
		t.Errorf("unset fields leaked: %+v", ae)
	}
}
