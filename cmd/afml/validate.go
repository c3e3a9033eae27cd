// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afml/afml/internal/engine"
	"github.com/afml/afml/pkg/project"
)

func (a *App) validateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a project without running it",
		Long: `Load the project with the strict definition policy, build every step
executor and check that references to named datasets and models exist.
References that depend on params are only checked during a run.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			p, err := project.Load(a.projectPath, project.ParseOptions{Policy: project.DefinitionsStrict})
			if err != nil {
				return &ExitError{Code: 1, Err: explainLoad(err, a.projectPath)}
			}
			if _, err := engine.New(p, engine.Options{
				Definitions: project.DefinitionsStrict,
				Executor:    a.config.ExecutorDefaults(),
			}); err != nil {
				return explainRun(err, "validate project")
			}
			if err := checkRefs(p); err != nil {
				return explainRun(err, "validate project")
			}
			st := newStyles(a.stdout, a.colorScheme())
			fmt.Fprintln(a.stdout, st.Success.Render("✓ ")+fmt.Sprintf("%s: %d jobs, %d datasets, %d models", a.projectPath, len(p.Jobs), len(p.Datasets), len(p.Models)))
			return nil
		},
	}
	return cmd
}

// checkRefs looks up every literal dataset and model name referenced by a
// job or step.
func checkRefs(p *project.Project) error {
	var errs []error
	check := func(owner string, ref project.Ref, lookup func(string) error) {
		name, ok := ref.Value.(string)
		if ref.Kind != project.RefName || !ok || strings.Contains(name, "{") {
			return
		}
		if err := lookup(name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", owner, err))
		}
	}
	dataset := func(n string) error { _, err := p.Dataset(n); return err }
	model := func(n string) error { _, err := p.Model(n); return err }

	for _, j := range p.Jobs {
		check(j.DisplayName(), j.Dataset, dataset)
		check(j.DisplayName(), j.Model, model)
		for _, s := range j.Steps {
			owner := j.DisplayName() + " / " + s.DisplayName()
			check(owner, s.Dataset, dataset)
			check(owner, s.Model, model)
		}
	}
	return errors.Join(errs...)
}
