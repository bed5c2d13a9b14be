// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cilbind/cilbind/internal/issue"
	"github.com/cilbind/cilbind/pkg/asmref"
	"github.com/cilbind/cilbind/pkg/cil"
	"github.com/cilbind/cilbind/pkg/clrmeta"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. When the CLI layer receives a ServiceError, it renders the
// styled error message (if present) before the issue catalog entry.
// Always create via newServiceError to enforce the Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
// All construction sites must use this instead of struct literals.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps resolution and metadata failures to issue catalog IDs
// and exit codes. An error that already is a ServiceError keeps its ID.
func classifyError(err error, verbose bool) (*ServiceError, int) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, exitFailure
	}

	issueID, code := issue.AssemblyLoadFailedId, exitFailure
	switch {
	case errors.Is(err, asmref.ErrUnresolvedDependency):
		issueID, code = issue.UnresolvedDependencyId, exitUnresolved
	case errors.Is(err, asmref.ErrMissingType):
		issueID, code = issue.MissingTypeId, exitUnresolved
	case errors.Is(err, clrmeta.ErrNotManaged), errors.Is(err, clrmeta.ErrNoAssembly):
		issueID = issue.NotManagedAssemblyId
	case errors.Is(err, cil.ErrInvalidAssemblyName):
		issueID = issue.InvalidAssemblyNameId
	}

	err = withResolutionHints(err)
	styled := fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	return newServiceError(err, issueID, styled), code
}

// withResolutionHints wraps resolver failures in an ActionableError that
// tells the user where cilbind looked and which knobs widen the search.
// Other errors are returned unchanged.
func withResolutionHints(err error) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	var unresolved *asmref.UnresolvedDependencyError
	if errors.As(err, &unresolved) {
		hint := issue.NewErrorContext().
			WithOperation("resolve assembly").
			WithResource(string(unresolved.Identity))
		if len(unresolved.Searched) > 0 {
			hint.WithSuggestion("Searched " + strings.Join(unresolved.Searched, ", "))
		}
		return hint.
			WithSuggestion(fmt.Sprintf("Pass the folder holding %[1]s.dll or %[1]s.exe with --extra", unresolved.Name)).
			WithSuggestion("Add that folder to extra_folders in the config file ('cilbind config path' shows which file)").
			WithSuggestion("Set fallback.enabled with fallback.gac_roots or fallback.probing_paths to search outside the input folders").
			Wrap(err).
			BuildError()
	}

	var missing *asmref.MissingTypeError
	if errors.As(err, &missing) {
		return issue.NewErrorContext().
			WithOperation("resolve type").
			WithResource(missing.Path).
			WithSuggestion(fmt.Sprintf("Check that %s is the build the referencing assembly was compiled against", missing.Location)).
			WithSuggestion("Folders are searched in order; pass the folder holding the right build earlier with --extra or extra_folders").
			Wrap(err).
			BuildError()
	}
	return err
}

// renderServiceError renders a ServiceError in the CLI layer.
// It prints any styled message first, then the optional issue help section
// rendered with the given glamour style.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(style)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}
