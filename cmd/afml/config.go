// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/afml/afml/internal/config"
)

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the afml configuration",
		Long: `Inspect and initialize the configuration.

The configuration is read from --config, else from config.cue in the user
config directory, else from afml.cue in the working directory. AFML_*
environment variables override single keys, e.g. AFML_SHELL_RUNTIME=virtual.`,
	}
	cmd.AddCommand(a.configShowCommand(), a.configPathCommand(), a.configInitCommand(), a.configDumpCommand())
	return cmd
}

func (a *App) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			st := newStyles(a.stdout, a.colorScheme())
			source := a.config.Path
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintln(a.stdout, st.Muted.Render("// source: "+source))
			fmt.Fprint(a.stdout, config.GenerateCUE(a.config.Config))
			return nil
		},
	}
}

func (a *App) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the user config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, filepath.Join(dir, config.FileName))
			return nil
		},
	}
}

func (a *App) configInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration unless a config file exists",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			path, err := config.Init(dir)
			if err != nil {
				return err
			}
			st := newStyles(a.stdout, a.colorScheme())
			fmt.Fprintln(a.stdout, st.Success.Render("✓ ")+path)
			return nil
		},
	}
}

func (a *App) configDumpCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as JSON, YAML or TOML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var (
				out []byte
				err error
			)
			switch format {
			case "json":
				if out, err = json.MarshalIndent(a.config.Config, "", "  "); err == nil {
					out = append(out, '\n')
				}
			case "yaml":
				out, err = yaml.Marshal(a.config.Config)
			case "toml":
				out, err = toml.Marshal(a.config.Config)
			default:
				return fmt.Errorf("unknown format %q (want json, yaml or toml)", format)
			}
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: json, yaml or toml")
	return cmd
}
