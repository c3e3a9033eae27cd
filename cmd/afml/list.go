// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/afml/afml/internal/engine"
	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/project"
)

func (a *App) listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the datasets, models and jobs of a project",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			p, err := project.Load(a.projectPath, project.ParseOptions{Policy: a.config.Definitions})
			if err != nil {
				return &ExitError{Code: 1, Err: explainLoad(err, a.projectPath)}
			}
			o, err := engine.New(p, engine.Options{
				Definitions: a.config.Definitions,
				Executor:    a.config.ExecutorDefaults(),
			})
			if err != nil {
				return explainRun(err, "list project")
			}
			printProject(a.stdout, newStyles(a.stdout, a.colorScheme()), p, o)
			return nil
		},
	}
	return cmd
}

func printProject(w io.Writer, st styles, p *project.Project, o *engine.Orchestrator) {
	if len(p.Datasets) > 0 {
		fmt.Fprintln(w, st.Title.Render("Datasets"))
		for _, d := range p.Datasets {
			fmt.Fprintf(w, "  %s %s\n", d.DisplayName(), st.Muted.Render(d.Folder))
		}
	}
	if len(p.Models) > 0 {
		fmt.Fprintln(w, st.Title.Render("Models"))
		for _, m := range p.Models {
			fmt.Fprintf(w, "  %s %s\n", m.DisplayName(), st.Muted.Render(m.Source()))
		}
	}
	if n := axes(p.Matrix); n != "" {
		fmt.Fprintln(w, st.Title.Render("Matrix")+" "+st.Muted.Render(n))
	}

	fmt.Fprintln(w, st.Title.Render("Jobs"))
	for i, j := range p.Jobs {
		line := fmt.Sprintf("  %d. %s", i+1, j.DisplayName())
		if n := axes(j.Matrix); n != "" {
			line += " " + st.Muted.Render(n)
		}
		fmt.Fprintln(w, st.Job.Render(line))
		for _, s := range j.Steps {
			label := "dropped"
			if ex := o.Executor(s); ex != nil {
				label = ex.String()
			}
			fmt.Fprintf(w, "     - %s %s\n", s.DisplayName(), st.Step.Render("["+label+"]"))
		}
	}
}

// axes describes a matrix as "name×count" pairs.
func axes(m matrix.Matrix) string {
	out := ""
	for _, ax := range m.Axes() {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s×%d", ax.Name, len(ax.Values))
	}
	return out
}
