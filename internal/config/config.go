// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/afml/afml/internal/issue"
	"github.com/afml/afml/pkg/cueutil"
)

const (
	// AppName names the per-user configuration directory.
	AppName = "afml"
	// FileName is the config file inside the configuration directory.
	FileName = "config.cue"
	// LocalFileName is the project-local config file.
	LocalFileName = "afml.cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "AFML"
	// DirEnv overrides the configuration directory.
	DirEnv = "AFML_CONFIG_DIR"
)

//go:embed config_schema.cue
var configSchema []byte

type (
	// LoadOptions selects the configuration source.
	LoadOptions struct {
		// File forces a specific config file, which must exist.
		File string
		// Dir overrides the configuration directory.
		Dir string
		// WorkDir is searched for LocalFileName; empty means the current
		// directory.
		WorkDir string
	}

	// Loaded is a configuration together with the file it came from.
	Loaded struct {
		*Config
		// Path is empty when only defaults and environment apply.
		Path string
	}
)

// Dir returns the per-user configuration directory: $AFML_CONFIG_DIR, or
// afml under the platform config directory.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Load resolves the config file, layers it over the defaults and applies
// environment overrides.
func Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := mergeCUE(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion(
					"Check that the file is valid CUE",
					"Remove the file to fall back to the defaults",
				).
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check the AFML_ environment variables as well as the file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &Loaded{Config: &cfg, Path: path}, nil
}

// resolve returns the file to read, or "" for none.
func resolve(opts LoadOptions) (string, error) {
	if opts.File != "" {
		if !isFile(opts.File) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.File).
				WithSuggestion("Verify the path passed to --config").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(os.ErrNotExist).
				BuildError()
		}
		return opts.File, nil
	}

	dir := opts.Dir
	if dir == "" {
		d, err := Dir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if p := filepath.Join(dir, FileName); isFile(p) {
		return p, nil
	}
	if p := filepath.Join(opts.WorkDir, LocalFileName); isFile(p) {
		return p, nil
	}
	return "", nil
}

// mergeCUE validates a file against #Config and merges it into v.
func mergeCUE(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}
	return v.MergeConfigMap(*res.Value)
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scratch_dir", d.ScratchDir)
	v.SetDefault("python_interpreter", d.PythonInterpreter)
	v.SetDefault("shell.runtime", string(d.Shell.Runtime))
	v.SetDefault("shell.program", d.Shell.Program)
	v.SetDefault("shell.args", d.Shell.Args)
	v.SetDefault("definitions", string(d.Definitions))
	v.SetDefault("conditions", string(d.Conditions))
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("watch.patterns", d.Watch.Patterns)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("watch.debounce", d.Watch.Debounce.String())
	v.SetDefault("metrics.file", d.Metrics.File)
}

// Init writes the default configuration to dir/FileName unless it exists and
// returns the path.
func Init(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	if _, err := f.WriteString(GenerateCUE(DefaultConfig())); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, f.Close()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
