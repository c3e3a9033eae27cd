// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/runctx"
)

func (a *App) contextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Inspect run context files",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a run context with the params merged",
		Long: `Print a run context file as written for an interpreter step. The
merged params are shown the way a step sees them: project, job and step
params with later layers winning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := runctx.Load(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}
			return a.printContext(c)
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON")
	cmd.AddCommand(show)
	return cmd
}

func (a *App) printContext(c *runctx.Context) error {
	st := newStyles(a.stdout, a.colorScheme())
	fmt.Fprintf(a.stdout, "%s %s / %s\n", st.Title.Render("Step"), c.Job.Name, c.Step.Name)
	if c.RunID != "" {
		fmt.Fprintf(a.stdout, "%s %s\n", st.Muted.Render("run"), c.RunID)
	}
	if c.Dataset != nil {
		fmt.Fprintf(a.stdout, "%s %s %s\n", st.Muted.Render("dataset"), c.Dataset.Name, c.Dataset.Folder)
	}
	if c.Model != nil {
		fmt.Fprintf(a.stdout, "%s %s %s\n", st.Muted.Render("model"), c.Model.Name, c.Model.Source())
	}
	if c.Matrix != nil && c.Matrix.Len() > 0 {
		fmt.Fprintf(a.stdout, "%s %s\n", st.Muted.Render("matrix"), params.Repr(c.Matrix))
	}

	out, err := yaml.Marshal(map[string]*params.Map{"params": c.Params()})
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}
