// SPDX-License-Identifier: MPL-2.0

// Package metrics records step outcomes as Prometheus metrics and writes them
// in the node-exporter textfile format at the end of a run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/afml/afml/internal/engine"
)

// Namespace prefixes every metric name.
const Namespace = "afml"

// Recorder is an engine.Reporter backed by a private registry.
type Recorder struct {
	engine.NopReporter

	registry     *prometheus.Registry
	stepRuns     *prometheus.CounterVec
	stepDuration *prometheus.GaugeVec
	jobRuns      *prometheus.CounterVec
	runSuccess   prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stepRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "step_runs_total",
				Help:      "Step executions by final status.",
			},
			[]string{"job", "step", "status"},
		),
		stepDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "step_duration_seconds",
				Help:      "Wall time of the last execution of a step.",
			},
			[]string{"job", "step"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "job_runs_total",
				Help:      "Job matrix instances by final status.",
			},
			[]string{"job", "status"},
		),
		runSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_success",
			Help:      "1 if the last run finished without error, 0 otherwise.",
		}),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// JobFinished counts the job instance.
func (r *Recorder) JobFinished(ev engine.JobEvent) {
	r.jobRuns.WithLabelValues(ev.Job.DisplayName(), ev.Status.String()).Inc()
}

// StepFinished counts the step and records its duration when it ran.
func (r *Recorder) StepFinished(ev engine.StepEvent) {
	job, step := ev.Job.DisplayName(), ev.Step.DisplayName()
	r.stepRuns.WithLabelValues(job, step, ev.Status.String()).Inc()
	if ev.Status == engine.StatusSucceeded || (ev.Status == engine.StatusFailed && ev.Duration > 0) {
		r.stepDuration.WithLabelValues(job, step).Set(ev.Duration.Seconds())
	}
}

// Finish records the outcome of the whole run.
func (r *Recorder) Finish(err error) {
	if err != nil {
		r.runSuccess.Set(0)
		return
	}
	r.runSuccess.Set(1)
}

// WriteToTextfile writes every metric to path, atomically replacing it.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
