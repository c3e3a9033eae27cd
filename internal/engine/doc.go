// SPDX-License-Identifier: MPL-2.0

// Package engine runs a project: for every project matrix instance, every job,
// every job matrix instance and every step, it builds the parameter scope,
// evaluates conditions and supervises the step process.
//
// Runs are strictly sequential. The first failing step aborts the run.
package engine
