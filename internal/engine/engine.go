// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/afml/afml/internal/executor"
	"github.com/afml/afml/pkg/condition"
	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/project"
	"github.com/afml/afml/pkg/runctx"
)

// DefaultScratchDir holds run context files and the run record.
const DefaultScratchDir = ".afml"

type (
	// Clock supplies step timestamps.
	Clock interface {
		Now() time.Time
	}

	// Options configures an Orchestrator. The zero value runs with strict
	// definitions, lenient conditions and no reporter.
	Options struct {
		Definitions project.DefinitionPolicy
		Conditions  condition.Policy
		Executor    executor.Defaults

		// ScratchDir defaults to DefaultScratchDir.
		ScratchDir string
		// Dir is the working directory of step processes; empty means the
		// current one.
		Dir string
		// Env holds extra KEY=VALUE entries for step processes.
		Env []string
		// Stdout receives step standard output; nil means os.Stdout.
		Stdout io.Writer

		// Vars are bound before the project params (time, last_time).
		Vars  *params.Map
		RunID string

		// DryRun resolves every step and reports it as planned without
		// spawning anything.
		DryRun bool

		Reporter Reporter
		Clock    Clock
		// Stat backs file conditions; nil means os.Stat.
		Stat func(string) (os.FileInfo, error)
	}

	// Orchestrator runs a project.
	Orchestrator struct {
		project    *project.Project
		opts       Options
		jobs       []*plannedJob
		resolver   project.Resolver
		conditions condition.Evaluator
	}

	plannedJob struct {
		job   *project.Job
		steps []plannedStep
	}

	plannedStep struct {
		step *project.Step
		exec executor.Executor
	}

	// iteration is the resolved state of one job matrix instance.
	iteration struct {
		job           *project.Job
		matrix        matrix.Instance
		projectParams *params.Map
		jobParams     *params.Map
		dataset       *project.Dataset
		model         *project.Model
	}

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

// New prepares an orchestrator. Every step executor is built up front; under
// the strict definition policy the first invalid step fails construction,
// under the lenient one it is dropped with a warning.
func New(p *project.Project, opts Options) (*Orchestrator, error) {
	if opts.Definitions == "" {
		opts.Definitions = project.DefinitionsStrict
	}
	if ok, errs := opts.Definitions.IsValid(); !ok {
		return nil, errs[0]
	}
	if opts.Conditions == "" {
		opts.Conditions = condition.PolicyLenient
	}
	if ok, errs := opts.Conditions.IsValid(); !ok {
		return nil, errs[0]
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = DefaultScratchDir
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	o := &Orchestrator{
		project:    p,
		opts:       opts,
		resolver:   project.Resolver{Project: p, Policy: opts.Definitions},
		conditions: condition.Evaluator{Policy: opts.Conditions, Stat: opts.Stat},
	}
	for _, j := range p.Jobs {
		pj := &plannedJob{job: j}
		for i, s := range j.Steps {
			ex, err := executor.Parse(s.Definition, opts.Executor)
			if err != nil {
				var de *project.DefinitionError
				if errors.As(err, &de) && de.Position == 0 {
					de.Position = i + 1
				}
				if opts.Definitions == project.DefinitionsLenient {
					slog.Warn("dropping step with invalid executor", "job", j.DisplayName(), "step", s.DisplayName(), "reason", err.Error())
					continue
				}
				return nil, &EntityError{Job: j.DisplayName(), Step: s.DisplayName(), Err: err}
			}
			pj.steps = append(pj.steps, plannedStep{step: s, exec: ex})
		}
		o.jobs = append(o.jobs, pj)
	}
	return o, nil
}

// Executor returns the executor built for a step, or nil when the step was
// dropped.
func (o *Orchestrator) Executor(s *project.Step) executor.Executor {
	for _, pj := range o.jobs {
		for _, ps := range pj.steps {
			if ps.step == s {
				return ps.exec
			}
		}
	}
	return nil
}

// Run runs every job for every project matrix instance.
func (o *Orchestrator) Run(ctx context.Context) error {
	for inst := range o.project.Matrix.All() {
		if inst.Len() > 0 {
			o.opts.Reporter.MatrixStarted(inst)
		}
		for _, pj := range o.jobs {
			if err := o.runJob(ctx, pj, inst); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunJobs runs the selected jobs in the given order, each for every project
// matrix instance. Selectors match a job name, display name or 1-based
// position; every selector is checked before anything runs.
func (o *Orchestrator) RunJobs(ctx context.Context, selectors []string) error {
	selected := make([]*plannedJob, 0, len(selectors))
	for _, sel := range selectors {
		j, err := o.project.Job(sel)
		if err != nil {
			return err
		}
		for _, pj := range o.jobs {
			if pj.job == j {
				selected = append(selected, pj)
			}
		}
	}

	for _, pj := range selected {
		for inst := range o.project.Matrix.All() {
			if inst.Len() > 0 {
				o.opts.Reporter.MatrixStarted(inst)
			}
			if err := o.runJob(ctx, pj, inst); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) runJob(ctx context.Context, pj *plannedJob, projectInst matrix.Instance) error {
	job := pj.job
	o.opts.Reporter.JobStarted(JobEvent{Job: job, Matrix: projectInst, Status: StatusPending})

	for jobInst := range job.Matrix.All() {
		inst := matrix.Merge(projectInst, jobInst)
		if jobInst.Len() > 0 {
			o.opts.Reporter.JobMatrixStarted(JobEvent{Job: job, Matrix: inst, Status: StatusPending})
		}

		scope, it, err := o.jobScope(job, inst)
		if err != nil {
			o.opts.Reporter.JobFinished(JobEvent{Job: job, Matrix: inst, Status: StatusFailed})
			return &EntityError{Job: job.DisplayName(), Err: err}
		}

		ok, err := o.conditions.Evaluate(job.Conditions, scope)
		if err != nil {
			o.opts.Reporter.JobFinished(JobEvent{Job: job, Matrix: inst, Status: StatusFailed})
			return &EntityError{Job: job.DisplayName(), Err: err}
		}
		if !ok {
			o.opts.Reporter.JobFinished(JobEvent{Job: job, Matrix: inst, Status: StatusSkipped})
			continue
		}

		for _, ps := range pj.steps {
			if err := o.runStep(ctx, ps, scope.Clone(), it); err != nil {
				o.opts.Reporter.JobFinished(JobEvent{Job: job, Matrix: inst, Status: StatusFailed})
				return err
			}
		}
		o.opts.Reporter.JobFinished(JobEvent{Job: job, Matrix: inst, Status: StatusSucceeded})
	}
	return nil
}

// jobScope layers implicit vars, project params, the matrix instance, the job,
// its dataset and model and the job params, each formatted against the
// layers before it.
func (o *Orchestrator) jobScope(job *project.Job, inst matrix.Instance) (*params.Scope, *iteration, error) {
	scope := params.NewScope(o.opts.Vars)
	it := &iteration{job: job, matrix: inst}

	var err error
	if it.projectParams, err = scope.Update(o.project.Params); err != nil {
		return nil, nil, fmt.Errorf("project params: %w", err)
	}
	for name, v := range inst.Map().All() {
		scope.Set(name, v)
	}
	scope.Set("matrix", inst)
	scope.Set("job", job)

	if it.dataset, err = o.resolver.Dataset(job.Dataset, scope); err != nil {
		return nil, nil, err
	}
	if it.model, err = o.resolver.Model(job.Model, scope); err != nil {
		return nil, nil, err
	}
	bindEntities(scope, it.dataset, it.model)

	if it.jobParams, err = scope.Update(job.Params); err != nil {
		return nil, nil, fmt.Errorf("job params: %w", err)
	}
	return scope, it, nil
}

func (o *Orchestrator) runStep(ctx context.Context, ps plannedStep, scope *params.Scope, it *iteration) error {
	step := ps.step
	ev := StepEvent{Job: it.job, Step: step, Matrix: it.matrix, Label: ps.exec.String()}
	fail := func(err error) error {
		ev.Status = StatusFailed
		o.opts.Reporter.StepFinished(ev)
		return &EntityError{Job: it.job.DisplayName(), Step: step.DisplayName(), Err: err}
	}

	ev.Status = StatusPending
	o.opts.Reporter.StepStarted(ev)

	scope.Set("step", step)
	dataset, model := it.dataset, it.model
	if d, err := o.resolver.Dataset(step.Dataset, scope); err != nil {
		return fail(err)
	} else if d != nil {
		dataset = d
	}
	if m, err := o.resolver.Model(step.Model, scope); err != nil {
		return fail(err)
	} else if m != nil {
		model = m
	}
	bindEntities(scope, dataset, model)

	stepParams, err := scope.Update(step.Params)
	if err != nil {
		return fail(fmt.Errorf("step params: %w", err))
	}

	ok, err := o.conditions.Evaluate(step.Conditions, scope)
	if err != nil {
		return fail(err)
	}
	if !ok {
		ev.Status = StatusSkipped
		o.opts.Reporter.StepFinished(ev)
		return nil
	}

	if o.opts.DryRun {
		if ev.Command, err = ps.exec.Describe(scope); err != nil {
			return fail(err)
		}
		ev.Status = StatusPlanned
		o.opts.Reporter.StepFinished(ev)
		return nil
	}

	rc := &runctx.Context{
		RunID:         o.opts.RunID,
		Job:           runctx.Entity{Name: it.job.DisplayName(), Index: it.job.Index},
		Step:          runctx.Entity{Name: step.DisplayName(), Index: step.Index},
		ProjectParams: it.projectParams,
		JobParams:     it.jobParams,
		StepParams:    stepParams,
		Dataset:       runctx.DatasetOf(dataset),
		Model:         runctx.ModelOf(model),
		Matrix:        it.matrix.Map(),
		Time:          varString(o.opts.Vars, "time"),
		LastTime:      varString(o.opts.Vars, "last_time"),
	}

	start := o.opts.Clock.Now()
	proc, err := ps.exec.Start(ctx, executor.StartRequest{
		Context:    rc,
		Scope:      scope,
		ScratchDir: o.opts.ScratchDir,
		Dir:        o.opts.Dir,
		Env: slices.Concat(o.opts.Env, []string{
			"AFML_JOB=" + it.job.DisplayName(),
			"AFML_STEP=" + step.DisplayName(),
			"AFML_STEP_INDEX=" + strconv.Itoa(step.Index),
		}),
		Stdout: o.opts.Stdout,
	})
	if err != nil {
		return fail(err)
	}

	ev.Status = StatusRunning
	for line := range proc.Lines() {
		ev.Line = line
		o.opts.Reporter.StepOutput(ev)
	}
	ev.Line = ""

	code, err := proc.Wait()
	ev.ExitCode = code
	ev.Duration = o.opts.Clock.Now().Sub(start)
	if err != nil {
		return fail(err)
	}
	if !code.IsSuccess() {
		ev.Status = StatusFailed
		o.opts.Reporter.StepFinished(ev)
		return &StepFailedError{Job: it.job.DisplayName(), Step: step.DisplayName(), ExitCode: code}
	}

	ev.Status = StatusSucceeded
	o.opts.Reporter.StepFinished(ev)
	return nil
}

// bindEntities binds dataset and model, keeping absent entities as untyped
// nil so that {dataset} renders as None.
func bindEntities(scope *params.Scope, d *project.Dataset, m *project.Model) {
	if d != nil {
		scope.Set("dataset", d)
	} else {
		scope.Set("dataset", nil)
	}
	if m != nil {
		scope.Set("model", m)
	} else {
		scope.Set("model", nil)
	}
}

func varString(vars *params.Map, name string) string {
	if v, ok := vars.Get(name); ok {
		return params.Str(v)
	}
	return ""
}
