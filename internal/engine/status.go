// SPDX-License-Identifier: MPL-2.0

package engine

const (
	// StatusPending is the state before a job or step is considered.
	StatusPending Status = iota
	// StatusRunning means the step process is alive.
	StatusRunning
	// StatusSkipped means a condition did not hold.
	StatusSkipped
	// StatusSucceeded means the step exited with status zero.
	StatusSucceeded
	// StatusFailed means the step exited non-zero or could not run.
	StatusFailed
	// StatusPlanned marks a step resolved during a dry run.
	StatusPlanned
)

// Status is the state of a job iteration or step.
type Status int

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSkipped:
		return "skipped"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusPlanned:
		return "planned"
	default:
		return "unknown"
	}
}
