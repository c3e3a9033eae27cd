// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/afml/afml/internal/config"
	"github.com/afml/afml/internal/engine"
	"github.com/afml/afml/internal/issue"
	"github.com/afml/afml/internal/metrics"
	"github.com/afml/afml/internal/runrecord"
	"github.com/afml/afml/internal/watch"
	"github.com/afml/afml/pkg/condition"
	"github.com/afml/afml/pkg/project"
)

var errDryRunWatch = errors.New("--dry-run cannot be combined with --watch")

type runFlags struct {
	jobs        []string
	dryRun      bool
	watch       bool
	metricsFile string
	definitions string
	conditions  string
}

func (a *App) runCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the jobs of a project",
		Long: `Run every job of the project for every matrix instance, or only the
jobs named with --job, in the order given.

A job is selected by name, by display name ("Job 2") or by its 1-based
position. The run stops at the first failing step and exits with its status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.dryRun && f.watch {
				return errDryRunWatch
			}
			if f.watch {
				return a.watchProject(cmd.Context(), f)
			}
			return a.runProject(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.jobs, "job", "j", nil, "run only this job (repeatable)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "print the resolved commands without running them")
	flags.BoolVarP(&f.watch, "watch", "w", false, "rerun whenever project files change")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.StringVar(&f.definitions, "definitions", "", "definition policy: strict or lenient (default from config)")
	flags.StringVar(&f.conditions, "conditions", "", "condition policy: strict or lenient (default from config)")
	return cmd
}

// settings merges command flags over the loaded configuration.
func (a *App) settings(f runFlags) *config.Config {
	cfg := *a.config.Config
	if f.definitions != "" {
		cfg.Definitions = project.DefinitionPolicy(f.definitions)
	}
	if f.conditions != "" {
		cfg.Conditions = condition.Policy(f.conditions)
	}
	if f.metricsFile != "" {
		cfg.Metrics.File = f.metricsFile
	}
	return &cfg
}

func (a *App) runProject(ctx context.Context, f runFlags) error {
	cfg := a.settings(f)

	p, err := project.Load(a.projectPath, project.ParseOptions{Policy: cfg.Definitions})
	if err != nil {
		return &ExitError{Code: 1, Err: explainLoad(err, a.projectPath)}
	}
	dir, err := filepath.Abs(p.Dir())
	if err != nil {
		return err
	}
	scratch := cfg.ScratchDir
	if !filepath.IsAbs(scratch) {
		scratch = filepath.Join(dir, scratch)
	}

	// The record is only replaced once the steps have been accepted.
	run, err := runrecord.Preview(scratch, a.now())
	if err != nil {
		return err
	}

	st := newStyles(a.stdout, a.colorScheme())
	rec := metrics.NewRecorder()
	o, err := engine.New(p, engine.Options{
		Definitions: cfg.Definitions,
		Conditions:  cfg.Conditions,
		Executor:    cfg.ExecutorDefaults(),
		ScratchDir:  scratch,
		Dir:         dir,
		Env:         []string{"AFML_RUN_ID=" + run.ID},
		Stdout:      a.stdout,
		Vars:        run.Vars(),
		RunID:       run.ID,
		DryRun:      f.dryRun,
		Reporter:    engine.MultiReporter{newConsole(a.stdout, st, a.verbose), rec},
		Stat:        projectStat(dir),
	})
	if err != nil {
		return explainRun(err, "run project")
	}
	if !f.dryRun {
		if err := run.Save(scratch); err != nil {
			return err
		}
	}
	slog.Debug("starting run", "id", run.ID, "number", run.Number, "project", a.projectPath)

	if len(f.jobs) > 0 {
		err = o.RunJobs(ctx, f.jobs)
	} else {
		err = o.Run(ctx)
	}
	rec.Finish(err)

	if cfg.Metrics.File != "" && !f.dryRun {
		if werr := rec.WriteToTextfile(cfg.Metrics.File); werr != nil {
			slog.Warn("could not write metrics", "file", cfg.Metrics.File, "error", werr)
		}
	}
	return explainRun(err, "run project")
}

// projectStat resolves relative file conditions against the project
// directory, like step working directories.
func projectStat(dir string) func(string) (os.FileInfo, error) {
	return func(path string) (os.FileInfo, error) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return os.Stat(path)
	}
}

// watchProject runs once, then again after every batch of changes under
// the project directory. Run failures are reported and do not stop watching.
func (a *App) watchProject(ctx context.Context, f runFlags) error {
	cfg := a.settings(f)
	dir := filepath.Dir(a.projectPath)

	runOnce := func(ctx context.Context) {
		if err := a.runProject(ctx, f); err != nil && ctx.Err() == nil {
			a.printError(a.stderr, err)
		}
	}
	runOnce(ctx)

	opts := cfg.WatchOptions(dir)
	opts.Out = a.stdout
	opts.OnChange = func(ctx context.Context, changed []string) error {
		slog.Info("change detected, rerunning", "files", len(changed))
		runOnce(ctx)
		return nil
	}
	w, err := watch.New(opts)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("watch project").
			WithResource(dir).
			WithIssue(issue.WatchFailedId).
			Wrap(err).
			BuildError()
	}
	fmt.Fprintln(a.stdout, newStyles(a.stdout, a.colorScheme()).Muted.Render("Watching "+dir+" for changes, press Ctrl+C to stop"))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
