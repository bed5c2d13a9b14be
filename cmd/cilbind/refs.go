// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/cilbind/cilbind/pkg/asmref"
	"github.com/cilbind/cilbind/pkg/cil"
	"github.com/cilbind/cilbind/pkg/clrmeta"
	"github.com/cilbind/cilbind/pkg/fspath"

	"github.com/spf13/cobra"
)

// newRefsCommand creates the `cilbind refs` command.
func newRefsCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <assembly>",
		Short: "Resolve every type reference of an assembly",
		Long: `Open an assembly and resolve each type it references from other assemblies.
The input directory defaults to the assembly's own directory. Resolution stops
at the first dependency that cannot be found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(cmd, app, flags, args[0])
		},
	}
}

func runRefs(cmd *cobra.Command, app *App, flags *rootFlags, path string) error {
	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()

	s, err := app.newSession(ctx, flags)
	if err != nil {
		return fail(cmd, nil, err)
	}

	location := fspath.MustAbs(path)
	assembly, err := clrmeta.Open(ctx, app.FS, location)
	if err != nil {
		return fail(cmd, s, err)
	}

	resolver, err := app.newResolver(s, flags, fspath.Dir(location))
	if err != nil {
		return fail(cmd, s, err)
	}

	var refs []cil.TypeRef
	for _, ref := range assembly.TypeReferences() {
		refs = append(refs, ref)
	}

	fmt.Fprintln(stdout, TitleStyle.Render("References of "+string(assembly.Name().FullName())))
	fmt.Fprintf(stdout, "%s Search path:\n", infoIcon)
	for _, dir := range resolver.SearchPath() {
		fmt.Fprintf(stdout, "    %s\n", VerboseStyle.Render(dir))
	}
	fmt.Fprintln(stdout)

	report, err := resolver.ResolveAll(ctx, refs)
	printReport(stdout, report)
	if err != nil {
		return fail(cmd, s, err)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%s %d resolved, %d skipped, %d assemblies loaded\n",
		successIcon, report.Len()-report.Skipped, report.Skipped, resolver.Len())
	if s.verbose {
		for _, mod := range resolver.Modules() {
			fmt.Fprintf(stdout, "    %s %s\n", CmdStyle.Render(string(mod.Name().FullName())), VerboseStyle.Render(mod.Location()))
		}
	}
	return nil
}

func printReport(w io.Writer, report asmref.Report) {
	for _, res := range report.Resolved {
		if res.Definition == nil {
			fmt.Fprintf(w, "%s %s %s\n", skipIcon, res.Reference.FullName(), SubtitleStyle.Render("(not scoped to an assembly)"))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", successIcon, CmdStyle.Render(res.Definition.FullName()),
			VerboseStyle.Render("["+res.Definition.Assembly.Name+"]"))
	}
}
