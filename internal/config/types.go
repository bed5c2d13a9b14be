// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidFolderPath is the sentinel error wrapped by InvalidFolderPathError.
	ErrInvalidFolderPath = errors.New("invalid folder path")
	// ErrInvalidFallbackConfig is the sentinel error wrapped by InvalidFallbackConfigError.
	ErrInvalidFallbackConfig = errors.New("invalid fallback config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrDuplicateFolder is returned when the same folder appears twice on the
	// search path.
	ErrDuplicateFolder = errors.New("duplicate search folder")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// FolderPath is a directory on the search path: a local path or any URL
	// the file service understands.
	FolderPath string

	// InvalidFolderPathError is returned for an empty or whitespace-only
	// FolderPath. Field names the configuration key it came from.
	InvalidFolderPathError struct {
		Field string
		Value FolderPath
	}

	// InvalidFallbackConfigError collects field errors of a FallbackConfig.
	InvalidFallbackConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// InputDir is searched first. Empty means the directory of the
		// assembly being inspected, or the working directory.
		InputDir FolderPath `json:"input_dir" mapstructure:"input_dir"`
		// ExtraFolders are searched after InputDir, in order.
		ExtraFolders []FolderPath `json:"extra_folders" mapstructure:"extra_folders"`
		// Fallback configures the resolver used when the search path has no match.
		Fallback FallbackConfig `json:"fallback" mapstructure:"fallback"`
		// UI configures terminal output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// FallbackConfig controls the global assembly cache and probing fallback.
	FallbackConfig struct {
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// DefaultGAC adds the platform's cache roots after GACRoots.
		DefaultGAC   bool         `json:"default_gac" mapstructure:"default_gac"`
		GACRoots     []FolderPath `json:"gac_roots" mapstructure:"gac_roots"`
		ProbingPaths []FolderPath `json:"probing_paths" mapstructure:"probing_paths"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// GlamourStyle maps the scheme to a glamour style name.
func (cs ColorScheme) GlamourStyle() string {
	switch cs {
	case ColorSchemeDark, ColorSchemeLight:
		return string(cs)
	default:
		return "auto"
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the FolderPath.
func (p FolderPath) String() string { return string(p) }

// IsValid reports whether the path is non-blank.
func (p FolderPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidFolderPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidFolderPathError.
func (e *InvalidFolderPathError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid folder path %q: must be non-empty", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid folder path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidFolderPath for errors.Is() compatibility.
func (e *InvalidFolderPathError) Unwrap() error { return ErrInvalidFolderPath }

// IsValid returns whether every configured root is a valid FolderPath.
func (c FallbackConfig) IsValid() (bool, []error) {
	var errs []error
	errs = append(errs, validateFolders("fallback.gac_roots", c.GACRoots)...)
	errs = append(errs, validateFolders("fallback.probing_paths", c.ProbingPaths)...)
	if len(errs) > 0 {
		return false, []error{&InvalidFallbackConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidFallbackConfigError.
func (e *InvalidFallbackConfigError) Error() string {
	return fmt.Sprintf("invalid fallback config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidFallbackConfig for errors.Is() compatibility.
func (e *InvalidFallbackConfigError) Unwrap() error { return ErrInvalidFallbackConfig }

// IsValid returns whether the Config has valid fields. InputDir may be empty;
// extra folders must be non-blank and must not repeat.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if c.InputDir != "" {
		if valid, fieldErrs := c.InputDir.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	errs = append(errs, validateFolders("extra_folders", c.ExtraFolders)...)
	if err := checkDuplicateFolders(c.InputDir, c.ExtraFolders); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.Fallback.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Strings converts folder paths for the resolver.
func Strings(paths []FolderPath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = string(p)
	}
	return out
}

func validateFolders(field string, paths []FolderPath) []error {
	var errs []error
	for i, p := range paths {
		if valid, _ := p.IsValid(); !valid {
			errs = append(errs, &InvalidFolderPathError{Field: fmt.Sprintf("%s[%d]", field, i), Value: p})
		}
	}
	return errs
}

// checkDuplicateFolders rejects a folder listed twice, since the second
// entry could never win.
func checkDuplicateFolders(inputDir FolderPath, extras []FolderPath) error {
	seen := make(map[string]string)
	if inputDir != "" {
		seen[normalizeFolder(inputDir)] = "input_dir"
	}
	for i, p := range extras {
		key := normalizeFolder(p)
		field := fmt.Sprintf("extra_folders[%d]", i)
		if first, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s repeats %s (%q)", ErrDuplicateFolder, field, first, p)
		}
		seen[key] = field
	}
	return nil
}

func normalizeFolder(p FolderPath) string {
	s := strings.TrimSpace(string(p))
	if len(s) > 1 {
		s = strings.TrimRight(s, `/\`)
	}
	return s
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		InputDir:     "",
		ExtraFolders: []FolderPath{},
		Fallback: FallbackConfig{
			Enabled:      true,
			DefaultGAC:   true,
			GACRoots:     []FolderPath{},
			ProbingPaths: []FolderPath{},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
