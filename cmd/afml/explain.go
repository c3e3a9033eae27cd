// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"io/fs"
	"os/exec"

	"github.com/afml/afml/internal/engine"
	"github.com/afml/afml/internal/executor"
	"github.com/afml/afml/internal/issue"
	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/project"
	"github.com/afml/afml/pkg/types"
)

// explainLoad attaches a help page to a project load failure.
func explainLoad(err error, path string) error {
	ctx := issue.NewErrorContext().WithOperation("load project").WithResource(path).Wrap(err)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ctx.WithIssue(issue.ProjectNotFoundId).
			WithSuggestion("pass the project file with --project", "run afml from the project directory")
	case errors.Is(err, project.ErrInvalidDefinition), errors.Is(err, project.ErrInvalidDefinitionPolicy):
		ctx.WithIssue(issue.InvalidDefinitionId).
			WithSuggestion("use --definitions lenient to drop incomplete definitions")
	default:
		ctx.WithIssue(issue.ProjectParseErrorId)
	}
	return ctx.BuildError()
}

// explainRun maps an orchestrator failure to the error returned by a
// command. A failed step keeps its exit code.
func explainRun(err error, operation string) error {
	if err == nil {
		return nil
	}
	ctx := issue.NewErrorContext().WithOperation(operation).Wrap(err)

	var sf *engine.StepFailedError
	var ee *exec.Error
	switch {
	case errors.As(err, &sf):
		ctx.WithResource(sf.Job + " / " + sf.Step).WithIssue(issue.StepFailedId)
		switch {
		case sf.ExitCode.IsNotFound():
			ctx.WithSuggestion("the step's command was not found; check PATH and the step definition")
		case sf.ExitCode.IsSignal():
			ctx.WithSuggestion("the step was killed by a signal; check memory limits and the step's own logs")
		}
		return &ExitError{Code: sf.ExitCode, Err: ctx.BuildError()}
	case errors.Is(err, executor.ErrNoShell):
		ctx.WithIssue(issue.ShellNotFoundId).
			WithSuggestion("set shell.runtime to \"virtual\" in the config")
	case errors.As(err, &ee):
		ctx.WithResource(ee.Name).WithIssue(issue.InterpreterNotFoundId).
			WithSuggestion("set python_interpreter in the config", "give the step an explicit interpreter")
	case errors.Is(err, project.ErrNotFound):
		ctx.WithIssue(issue.JobNotFoundId).WithSuggestion("run afml list to see the defined names")
	case errors.Is(err, params.ErrMissingName), errors.Is(err, params.ErrMalformed):
		ctx.WithIssue(issue.FormatErrorId)
	case errors.Is(err, project.ErrInvalidDefinition), errors.Is(err, project.ErrInvalidReference):
		ctx.WithIssue(issue.InvalidDefinitionId)
	}
	return &ExitError{Code: types.ExitCode(1), Err: ctx.BuildError()}
}
