// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/afml/afml/internal/executor"
	"github.com/afml/afml/internal/watch"
	"github.com/afml/afml/pkg/condition"
	"github.com/afml/afml/pkg/project"
)

const (
	// ColorSchemeAuto detects the terminal background.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark styles.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light styles.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Config is the effective configuration.
	Config struct {
		// ScratchDir holds run context files and the run record, relative to
		// the project directory.
		ScratchDir        string                   `json:"scratch_dir" yaml:"scratch_dir" toml:"scratch_dir" mapstructure:"scratch_dir"`
		PythonInterpreter string                   `json:"python_interpreter" yaml:"python_interpreter" toml:"python_interpreter" mapstructure:"python_interpreter"`
		Shell             ShellConfig              `json:"shell" yaml:"shell" toml:"shell" mapstructure:"shell"`
		Definitions       project.DefinitionPolicy `json:"definitions" yaml:"definitions" toml:"definitions" mapstructure:"definitions"`
		Conditions        condition.Policy         `json:"conditions" yaml:"conditions" toml:"conditions" mapstructure:"conditions"`
		UI                UIConfig                 `json:"ui" yaml:"ui" toml:"ui" mapstructure:"ui"`
		Watch             WatchConfig              `json:"watch" yaml:"watch" toml:"watch" mapstructure:"watch"`
		Metrics           MetricsConfig            `json:"metrics" yaml:"metrics" toml:"metrics" mapstructure:"metrics"`
	}

	// ShellConfig configures shell steps.
	ShellConfig struct {
		Runtime executor.ShellRuntime `json:"runtime" yaml:"runtime" toml:"runtime" mapstructure:"runtime"`
		// Program overrides the host shell lookup for the native runtime.
		Program string   `json:"program" yaml:"program" toml:"program" mapstructure:"program"`
		Args    []string `json:"args" yaml:"args" toml:"args" mapstructure:"args"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" yaml:"color_scheme" toml:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" yaml:"verbose" toml:"verbose" mapstructure:"verbose"`
	}

	// WatchConfig configures `afml run --watch`.
	WatchConfig struct {
		Patterns []string      `json:"patterns" yaml:"patterns" toml:"patterns" mapstructure:"patterns"`
		Ignore   []string      `json:"ignore" yaml:"ignore" toml:"ignore" mapstructure:"ignore"`
		Debounce time.Duration `json:"debounce" yaml:"debounce" toml:"debounce" mapstructure:"debounce"`
	}

	// MetricsConfig configures the Prometheus textfile written after a run.
	MetricsConfig struct {
		// File is written after every run when set.
		File string `json:"file" yaml:"file" toml:"file" mapstructure:"file"`
	}

	// ColorScheme selects terminal styles.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		ScratchDir:        ".afml",
		PythonInterpreter: executor.DefaultInterpreter,
		Shell:             ShellConfig{Runtime: executor.ShellNative, Args: []string{}},
		Definitions:       project.DefinitionsStrict,
		Conditions:        condition.PolicyLenient,
		UI:                UIConfig{ColorScheme: ColorSchemeAuto},
		Watch: WatchConfig{
			Patterns: []string{},
			Ignore:   []string{},
			Debounce: watch.DefaultDebounce,
		},
	}
}

// Validate checks the enum fields and watch patterns.
func (c *Config) Validate() error {
	var errs []error
	collect := func(ok bool, fieldErrs []error) {
		if !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	collect(c.Shell.Runtime.IsValid())
	collect(c.Definitions.IsValid())
	collect(c.Conditions.IsValid())
	collect(c.UI.ColorScheme.IsValid())
	if err := c.WatchOptions("").Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// ExecutorDefaults returns the executor settings for steps that do not name
// their own.
func (c *Config) ExecutorDefaults() executor.Defaults {
	return executor.Defaults{
		Interpreter:  c.PythonInterpreter,
		ShellRuntime: c.Shell.Runtime,
		Shell:        c.Shell.Program,
		ShellArgs:    c.Shell.Args,
	}
}

// WatchOptions returns watcher options rooted at dir. The scratch directory
// is ignored when it lies inside dir, since every run writes to it.
func (c *Config) WatchOptions(dir string) watch.Options {
	ignore := slices.Clone(c.Watch.Ignore)
	if rel, ok := scratchWithin(dir, c.ScratchDir); ok {
		ignore = append(ignore, rel+"/**")
	}
	return watch.Options{
		Dir:      dir,
		Patterns: c.Watch.Patterns,
		Ignore:   ignore,
		Debounce: c.Watch.Debounce,
	}
}

// scratchWithin returns scratch relative to dir in slash form.
func scratchWithin(dir, scratch string) (string, bool) {
	if scratch == "" {
		return "", false
	}
	if filepath.IsAbs(scratch) {
		root, err := filepath.Abs(dir)
		if err != nil {
			return "", false
		}
		if scratch, err = filepath.Rel(root, scratch); err != nil {
			return "", false
		}
	}
	rel := filepath.ToSlash(filepath.Clean(scratch))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
