// SPDX-License-Identifier: MPL-2.0

// Package project defines the project model (datasets, models, jobs, steps),
// loads it from YAML or CUE documents, and resolves dataset and model
// references against a parameter scope.
//
// A project is immutable once loaded. Jobs and steps receive display indexes
// from counters owned by the parse pass, so two projects parsed in the same
// process never share numbering.
package project
