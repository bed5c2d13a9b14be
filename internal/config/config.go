// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cilbind/cilbind/internal/issue"
	"github.com/cilbind/cilbind/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "cilbind"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. CILBIND_FALLBACK_ENABLED.
	EnvPrefix = "CILBIND"
)

// ErrConfigExists is returned by CreateDefaultConfig when the file is
// already present.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the cilbind configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	return configDirFor(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func configDirFor(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	var base string
	switch goos {
	case "windows":
		base = getenv("APPDATA")
		if base == "" {
			base = filepath.Join(getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		h, err := home()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(h, "Library", "Application Support")
	default:
		base = getenv("XDG_CONFIG_HOME")
		if base == "" {
			h, err := home()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(h, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// ConfigFilePath returns the default config file location.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions loads the configuration and returns the file it came from,
// or "" when only defaults and environment were used.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper(opts.Getenv)

	path, err := locateConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path, opts.MaxFileSize); err != nil {
			return nil, "", loadError(path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Checks the schema cannot express: duplicate folders and env overrides.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Remove folders listed more than once").
			WithSuggestion("Check CILBIND_* environment variables for blank values").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, path, nil
}

func newViper(getenv func(string) string) *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("input_dir", defaults.InputDir)
	v.SetDefault("extra_folders", defaults.ExtraFolders)
	v.SetDefault("fallback.enabled", defaults.Fallback.Enabled)
	v.SetDefault("fallback.default_gac", defaults.Fallback.DefaultGAC)
	v.SetDefault("fallback.gac_roots", defaults.Fallback.GACRoots)
	v.SetDefault("fallback.probing_paths", defaults.Fallback.ProbingPaths)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	if getenv == nil {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		return v
	}

	// Injected environments are applied explicitly so tests never see the
	// process environment.
	for _, key := range v.AllKeys() {
		name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val := getenv(name); val != "" {
			v.Set(key, val)
		}
	}
	return v
}

// locateConfigFile returns the explicit file, else the platform file, else
// ./config.cue, else "".
func locateConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'cilbind config init' to write a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("Run 'cilbind config show' to see the effective configuration").
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper, keeping defaults for omitted fields. Every field the file sets must
// be a concrete value.
func loadCUEIntoViper(v *viper.Viper, path string, maxSize int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if maxSize <= 0 {
		maxSize = cueutil.DefaultMaxFileSize
	}
	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithMaxFileSize(maxSize),
		cueutil.WithConcrete(true),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path, or to the
// platform location when path is empty. It returns the path written and
// ErrConfigExists if the file is already there.
func CreateDefaultConfig(path string) (string, error) {
	if path == "" {
		p, err := ConfigFilePath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if fileExists(path) {
		return path, ErrConfigExists
	}
	return path, Save(DefaultConfig(), path)
}

// Save writes cfg to path as CUE.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// cilbind configuration\n\n")

	if cfg.InputDir != "" {
		fmt.Fprintf(&sb, "input_dir: %q\n", cfg.InputDir)
	}
	writeList(&sb, "", "extra_folders", cfg.ExtraFolders)

	sb.WriteString("\nfallback: {\n")
	fmt.Fprintf(&sb, "\tenabled:     %v\n", cfg.Fallback.Enabled)
	fmt.Fprintf(&sb, "\tdefault_gac: %v\n", cfg.Fallback.DefaultGAC)
	writeList(&sb, "\t", "gac_roots", cfg.Fallback.GACRoots)
	writeList(&sb, "\t", "probing_paths", cfg.Fallback.ProbingPaths)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, indent, key string, paths []FolderPath) {
	if len(paths) == 0 {
		fmt.Fprintf(sb, "%s%s: []\n", indent, key)
		return
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, key)
	for _, p := range paths {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, p)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}
