// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/cilbind/cilbind/internal/issue"
	"github.com/cilbind/cilbind/pkg/asmref"
	"github.com/cilbind/cilbind/pkg/cil"

	"github.com/spf13/cobra"
)

// newResolveCommand creates the `cilbind resolve` command.
func newResolveCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identity> <type-path>",
		Short: "Resolve one type reference",
		Long: `Resolve a type reference given the identity of the assembly that defines it
and its full type path. Nested types are separated by '/'.

` + SubtitleStyle.Render("Example:") + `
  cilbind resolve "Lib, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null" Lib.Outer/Inner`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, app, flags, args[0], args[1])
		},
	}
}

func runResolve(cmd *cobra.Command, app *App, flags *rootFlags, identity, typePath string) error {
	ctx := cmd.Context()

	s, err := app.newSession(ctx, flags)
	if err != nil {
		return fail(cmd, nil, err)
	}

	name, err := cil.ParseAssemblyName(identity)
	if err != nil {
		return fail(cmd, s, newServiceError(err, issue.InvalidAssemblyNameId,
			fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), err)))
	}

	resolver, err := app.newResolver(s, flags, "")
	if err != nil {
		return fail(cmd, s, err)
	}

	ref := cil.ParseTypePath(cil.NewAssemblyScope(name), typePath)
	def, err := resolver.GetTypeDefinition(ctx, ref)
	if err != nil {
		return fail(cmd, s, err)
	}

	mod, _ := resolver.Cached(name.FullName())
	printDefinition(cmd.OutOrStdout(), def, mod)
	return nil
}

func printDefinition(w io.Writer, def *cil.TypeDefinition, mod asmref.Module) {
	fmt.Fprintf(w, "%s %s\n", successIcon, CmdStyle.Render(def.FullName()))
	fmt.Fprintf(w, "  %s%s\n", labelStyle.Render("Assembly"), def.Assembly.FullName())
	if mod != nil {
		fmt.Fprintf(w, "  %s%s\n", labelStyle.Render("Location"), VerboseStyle.Render(mod.Location()))
	}
	if def.Token != 0 {
		fmt.Fprintf(w, "  %s0x%08x\n", labelStyle.Render("Token"), def.Token)
	}
}
