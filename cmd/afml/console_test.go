// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/afml/afml/internal/engine"
	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/project"
)

func TestMatrixBanner(t *testing.T) {
	t.Parallel()

	inst := matrix.NewInstance(params.Of("lr", 0.1))
	got := matrixBanner(inst)
	if len(got) != bannerWidth {
		t.Errorf("len(matrixBanner()) = %d, want %d", len(got), bannerWidth)
	}
	if !strings.HasPrefix(got, " {'lr': 0.1}-") {
		t.Errorf("matrixBanner() = %q", got)
	}
}

func TestConsole(t *testing.T) {
	t.Parallel()

	job := &project.Job{Name: "train"}
	step := &project.Step{Index: 0}
	tests := []struct {
		name    string
		verbose bool
		emit    func(c *console)
		want    string
	}{
		{
			name: "job banner",
			emit: func(c *console) { c.JobStarted(engine.JobEvent{Job: job}) },
			want: "==== train ====\n",
		},
		{
			name: "step banner",
			emit: func(c *console) { c.StepStarted(engine.StepEvent{Job: job, Step: step, Label: "train.py"}) },
			want: "---- Step 1 [train.py] ----\n",
		},
		{
			name: "skipped job",
			emit: func(c *console) { c.JobFinished(engine.JobEvent{Job: job, Status: engine.StatusSkipped}) },
			want: "Skipping job\n",
		},
		{
			name: "finished job is silent",
			emit: func(c *console) { c.JobFinished(engine.JobEvent{Job: job, Status: engine.StatusSucceeded}) },
			want: "",
		},
		{
			name: "skipped step",
			emit: func(c *console) { c.StepFinished(engine.StepEvent{Step: step, Status: engine.StatusSkipped}) },
			want: "Skipping step\n",
		},
		{
			name: "planned step",
			emit: func(c *console) {
				c.StepFinished(engine.StepEvent{Step: step, Status: engine.StatusPlanned, Command: "echo hi"})
			},
			want: "$ echo hi\n",
		},
		{
			name: "failed step",
			emit: func(c *console) { c.StepFinished(engine.StepEvent{Step: step, Status: engine.StatusFailed}) },
			want: "ERROR: Step execution failed!\n",
		},
		{
			name: "stderr line",
			emit: func(c *console) { c.StepOutput(engine.StepEvent{Step: step, Line: "epoch 1"}) },
			want: "epoch 1\n",
		},
		{
			name:    "timing when verbose",
			verbose: true,
			emit: func(c *console) {
				c.StepFinished(engine.StepEvent{Step: step, Status: engine.StatusSucceeded, Duration: 1500 * time.Millisecond})
			},
			want: "done in 1.5s\n",
		},
		{
			name: "no timing by default",
			emit: func(c *console) {
				c.StepFinished(engine.StepEvent{Step: step, Status: engine.StatusSucceeded, Duration: time.Second})
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.emit(newConsole(&buf, newStyles(&buf, "auto"), tt.verbose))
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}
