// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cilbind/cilbind/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "cilbind",
		Short: "Resolve CIL type references to their defining assemblies",
		Long: TitleStyle.Render("cilbind") + SubtitleStyle.Render(" - Resolve CIL type references to their defining assemblies") + `

cilbind locates the assembly that defines a referenced type by searching the
input directory, then each extra folder, for Name.dll and Name.exe. Candidates
must match the requested identity exactly. When nothing matches, the GAC and
configured probing paths are consulted.

` + SubtitleStyle.Render("Examples:") + `
  cilbind identity ./bin/App.dll
  cilbind types ./bin/Lib.dll
  cilbind refs ./bin/App.dll --extra ./libs
  cilbind resolve "Lib, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null" Lib.Outer/Inner --in ./bin
  cilbind config show`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cilbind/config.cue)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.inputDir, "in", "", "primary input directory, searched first")
	pf.StringArrayVar(&flags.extraFolders, "extra", nil, "extra search folder (repeatable, searched in order)")

	rootCmd.AddCommand(
		newResolveCommand(app, flags),
		newRefsCommand(app, flags),
		newIdentityCommand(app, flags),
		newTypesCommand(app, flags),
		newConfigCommand(app, flags),
		newCompletionCommand(),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(NewApp(Dependencies{})),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}

// fail renders err with its issue catalog entry and converts it to an
// ExitError. s may be nil when the session could not be built.
func fail(cmd *cobra.Command, s *session, err error) error {
	verbose, style := false, "auto"
	if s != nil {
		verbose = s.verbose
		style = s.cfg.UI.ColorScheme.GlamourStyle()
	}

	svcErr, code := classifyError(err, verbose)
	renderServiceError(cmd.ErrOrStderr(), svcErr, style)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: code, Err: svcErr}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
