// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/cilbind/cilbind/pkg/clrmeta"
	"github.com/cilbind/cilbind/pkg/fspath"

	"github.com/spf13/cobra"
)

// newIdentityCommand creates the `cilbind identity` command.
func newIdentityCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "identity <assembly>",
		Short: "Print the declared identity of an assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return fail(cmd, nil, err)
			}

			name, err := clrmeta.ReadIdentity(cmd.Context(), app.FS, fspath.MustAbs(args[0]))
			if err != nil {
				return fail(cmd, s, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name.FullName())
			return nil
		},
	}
}

// newTypesCommand creates the `cilbind types` command.
func newTypesCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types <assembly>",
		Short: "List the type table of an assembly",
		Long: `List every type defined by an assembly using the full-path keys the resolver
looks types up by (namespace.Outer/Inner).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return fail(cmd, nil, err)
			}

			assembly, err := clrmeta.Open(cmd.Context(), app.FS, fspath.MustAbs(args[0]))
			if err != nil {
				return fail(cmd, s, err)
			}

			stdout := cmd.OutOrStdout()
			if s.verbose {
				fmt.Fprintln(stdout, TitleStyle.Render(string(assembly.Name().FullName())))
			}
			for _, def := range assembly.Types() {
				fmt.Fprintln(stdout, def.FullName())
			}
			return nil
		},
	}
}
