// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/afml/afml/internal/engine"
	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/params"
)

// bannerWidth is the width of the matrix separator line.
const bannerWidth = 100

// console prints the run as it happens: banners for jobs, steps and matrix
// instances, step stderr, skips and failures.
type console struct {
	engine.NopReporter
	w       io.Writer
	st      styles
	verbose bool
}

func newConsole(w io.Writer, st styles, verbose bool) *console {
	return &console{w: w, st: st, verbose: verbose}
}

func (c *console) MatrixStarted(inst matrix.Instance) {
	fmt.Fprintln(c.w, matrixBanner(inst))
}

func (c *console) JobStarted(ev engine.JobEvent) {
	fmt.Fprintln(c.w, c.st.Job.Render(fmt.Sprintf("==== %s ====", ev.Job.DisplayName())))
}

func (c *console) JobMatrixStarted(ev engine.JobEvent) {
	fmt.Fprintln(c.w, matrixBanner(ev.Matrix))
}

func (c *console) JobFinished(ev engine.JobEvent) {
	if ev.Status == engine.StatusSkipped {
		fmt.Fprintln(c.w, c.st.Warning.Render("Skipping job"))
	}
}

func (c *console) StepStarted(ev engine.StepEvent) {
	fmt.Fprintln(c.w, c.st.Step.Render(fmt.Sprintf("---- %s [%s] ----", ev.Step.DisplayName(), ev.Label)))
}

func (c *console) StepOutput(ev engine.StepEvent) {
	fmt.Fprintln(c.w, c.st.Warning.Render(ev.Line))
}

func (c *console) StepFinished(ev engine.StepEvent) {
	switch ev.Status {
	case engine.StatusSkipped:
		fmt.Fprintln(c.w, c.st.Warning.Render("Skipping step"))
	case engine.StatusPlanned:
		fmt.Fprintln(c.w, c.st.Command.Render("$ "+ev.Command))
	case engine.StatusFailed:
		fmt.Fprintln(c.w, c.st.Error.Render("ERROR: Step execution failed!"))
	case engine.StatusSucceeded:
		if c.verbose {
			fmt.Fprintln(c.w, c.st.Verbose.Render("done in "+ev.Duration.Round(time.Millisecond).String()))
		}
	}
}

// matrixBanner renders an instance as " {'lr': 0.1}------..." padded to
// bannerWidth.
func matrixBanner(inst matrix.Instance) string {
	s := " " + params.Repr(inst.Map())
	if n := bannerWidth - len(s); n > 0 {
		s += strings.Repeat("-", n)
	}
	return s
}
