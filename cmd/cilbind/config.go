// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cilbind/cilbind/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `cilbind config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cilbind configuration",
		Long: `Manage cilbind configuration.

Configuration is stored in:
  - Linux: ~/.config/cilbind/config.cue
  - macOS: ~/Library/Application Support/cilbind/config.cue
  - Windows: %APPDATA%\cilbind\config.cue

Every key can be overridden with a CILBIND_ environment variable, e.g.
CILBIND_FALLBACK_ENABLED=false.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return fail(cmd, nil, err)
			}
			showConfig(cmd.OutOrStdout(), s)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				p, err := config.ConfigFilePath()
				if err != nil {
					return fail(cmd, nil, err)
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			path, err := config.CreateDefaultConfig(flags.configPath)
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(stdout, "%s Config file already exists: %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			if err != nil {
				return fail(cmd, nil, err)
			}
			fmt.Fprintf(stdout, "%s Created config file: %s\n", successIcon, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context(), flags)
			if err != nil {
				return fail(cmd, nil, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(s.cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, s *session) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	none := SubtitleStyle.Render("(none configured)")

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if s.cfgPath != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), s.cfgPath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	if s.cfg.InputDir != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("input_dir"), valueStyle.Render(string(s.cfg.InputDir)))
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("input_dir"), SubtitleStyle.Render("(working directory)"))
	}
	writeFolders(w, keyStyle.Render("extra_folders")+":", "  ", s.cfg.ExtraFolders, none)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("fallback"))
	fmt.Fprintf(w, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.cfg.Fallback.Enabled)))
	fmt.Fprintf(w, "  default_gac: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.cfg.Fallback.DefaultGAC)))
	writeFolders(w, "  gac_roots:", "    ", s.cfg.Fallback.GACRoots, none)
	writeFolders(w, "  probing_paths:", "    ", s.cfg.Fallback.ProbingPaths, none)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(string(s.cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.cfg.UI.Verbose)))
}

func writeFolders(w io.Writer, header, indent string, folders []config.FolderPath, none string) {
	fmt.Fprintln(w, header)
	if len(folders) == 0 {
		fmt.Fprintf(w, "%s%s\n", indent, none)
		return
	}
	fmt.Fprintf(w, "%s- %s\n", indent, strings.Join(config.Strings(folders), "\n"+indent+"- "))
}
