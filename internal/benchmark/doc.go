// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a run:
//   - project decoding (YAML and CUE) and parsing
//   - replacement field formatting and HCL expressions
//   - matrix expansion
//   - virtual shell step execution
//   - an end-to-end dry run
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
