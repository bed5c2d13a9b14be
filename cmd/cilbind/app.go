// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/cilbind/cilbind/internal/config"
	"github.com/cilbind/cilbind/internal/issue"
	"github.com/cilbind/cilbind/pkg/asmref"
	"github.com/cilbind/cilbind/pkg/fspath"

	"github.com/charmbracelet/log"
	"github.com/viant/afs"
	"golang.org/x/exp/slices"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config config.Provider
		FS     afs.Service
		stdout io.Writer
		stderr io.Writer
		getenv func(string) string
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		FS     afs.Service
		Stdout io.Writer
		Stderr io.Writer
		// Getenv replaces os.Getenv for config overrides and GAC discovery.
		Getenv func(string) string
	}

	// rootFlags holds the persistent flags shared by every subcommand.
	rootFlags struct {
		configPath   string
		inputDir     string
		extraFolders []string
		verbose      bool
	}

	// session is the per-invocation state built from flags and configuration.
	session struct {
		cfg     *config.Config
		cfgPath string
		verbose bool
		logger  *slog.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.FS == nil {
		deps.FS = afs.New()
	}

	return &App{
		Config: deps.Config,
		FS:     deps.FS,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		getenv: deps.Getenv,
	}
}

func (app *App) env(key string) string {
	if app.getenv != nil {
		return app.getenv(key)
	}
	return os.Getenv(key)
}

// newSession loads configuration and installs the logger for one command run.
func (app *App) newSession(ctx context.Context, flags *rootFlags) (*session, error) {
	cfg, path, err := app.Config.LoadWithPath(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		Getenv:         app.getenv,
	})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId,
			"\n"+ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, flags.verbose)+"\n")
	}

	verbose := flags.verbose || cfg.UI.Verbose
	return &session{
		cfg:     cfg,
		cfgPath: path,
		verbose: verbose,
		logger:  newLogger(app.stderr, verbose),
	}, nil
}

// newResolver builds a resolver over the session's search path. The input
// directory comes from --in, then defaultInputDir, then the config, then the
// working directory.
func (app *App) newResolver(s *session, flags *rootFlags, defaultInputDir string) (*asmref.Resolver, error) {
	inputDir := firstNonEmpty(flags.inputDir, defaultInputDir, string(s.cfg.InputDir), ".")

	var extra []string
	for _, folder := range append(config.Strings(s.cfg.ExtraFolders), flags.extraFolders...) {
		folder = fspath.MustAbs(folder)
		if !slices.Contains(extra, folder) {
			extra = append(extra, folder)
		}
	}

	loader := asmref.NewMetadataLoader(app.FS)
	return asmref.NewResolver(fspath.MustAbs(inputDir),
		asmref.WithExtraFolders(extra...),
		asmref.WithFileSystem(app.FS),
		asmref.WithLoader(loader),
		asmref.WithFallback(app.newFallback(s.cfg, loader)),
		asmref.WithLogger(s.logger),
	)
}

func (app *App) newFallback(cfg *config.Config, loader asmref.Loader) asmref.Fallback {
	if !cfg.Fallback.Enabled {
		return asmref.NoFallback{}
	}
	roots := config.Strings(cfg.Fallback.GACRoots)
	if cfg.Fallback.DefaultGAC {
		roots = append(roots, asmref.DefaultGACRoots(runtime.GOOS, app.env)...)
	}
	probing := config.Strings(cfg.Fallback.ProbingPaths)
	for i := range probing {
		probing[i] = fspath.MustAbs(probing[i])
	}
	return asmref.NewProbingFallback(app.FS, loader, roots, probing)
}

// newLogger returns a slog logger backed by charmbracelet/log.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return slog.New(log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	}))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
