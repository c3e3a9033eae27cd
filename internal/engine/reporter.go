// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"time"

	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/project"
	"github.com/afml/afml/pkg/types"
)

type (
	// Reporter receives run events in order. Implementations must not block
	// for long; step output is forwarded line by line.
	Reporter interface {
		// MatrixStarted announces a project matrix instance with at least one
		// axis.
		MatrixStarted(inst matrix.Instance)
		JobStarted(ev JobEvent)
		// JobMatrixStarted announces a job matrix instance with at least one
		// axis.
		JobMatrixStarted(ev JobEvent)
		// JobFinished is sent once per job matrix instance.
		JobFinished(ev JobEvent)
		StepStarted(ev StepEvent)
		StepOutput(ev StepEvent)
		StepFinished(ev StepEvent)
	}

	// JobEvent describes a job iteration.
	JobEvent struct {
		Job *project.Job
		// Matrix is the merged project and job instance.
		Matrix matrix.Instance
		Status Status
	}

	// StepEvent describes a step.
	StepEvent struct {
		Job    *project.Job
		Step   *project.Step
		Matrix matrix.Instance
		// Label is the executor label shown in banners.
		Label string
		// Line is set for StepOutput.
		Line string
		// Command is the resolved command line of a planned step.
		Command  string
		Status   Status
		ExitCode types.ExitCode
		Duration time.Duration
	}

	// NopReporter ignores every event. Embed it to implement a subset.
	NopReporter struct{}

	// MultiReporter fans events out to several reporters.
	MultiReporter []Reporter
)

func (NopReporter) MatrixStarted(matrix.Instance) {}
func (NopReporter) JobStarted(JobEvent)           {}
func (NopReporter) JobMatrixStarted(JobEvent)     {}
func (NopReporter) JobFinished(JobEvent)          {}
func (NopReporter) StepStarted(StepEvent)         {}
func (NopReporter) StepOutput(StepEvent)          {}
func (NopReporter) StepFinished(StepEvent)        {}

func (m MultiReporter) MatrixStarted(inst matrix.Instance) {
	for _, r := range m {
		r.MatrixStarted(inst)
	}
}

func (m MultiReporter) JobStarted(ev JobEvent) {
	for _, r := range m {
		r.JobStarted(ev)
	}
}

func (m MultiReporter) JobMatrixStarted(ev JobEvent) {
	for _, r := range m {
		r.JobMatrixStarted(ev)
	}
}

func (m MultiReporter) JobFinished(ev JobEvent) {
	for _, r := range m {
		r.JobFinished(ev)
	}
}

func (m MultiReporter) StepStarted(ev StepEvent) {
	for _, r := range m {
		r.StepStarted(ev)
	}
}

func (m MultiReporter) StepOutput(ev StepEvent) {
	for _, r := range m {
		r.StepOutput(ev)
	}
}

func (m MultiReporter) StepFinished(ev StepEvent) {
	for _, r := range m {
		r.StepFinished(ev)
	}
}
