// SPDX-License-Identifier: MPL-2.0

// Package executor launches step processes.
//
// A step definition selects one of two variants:
//
//   - Interpreter runs a script or module with an interpreter (python by
//     default) and hands it the run context through --afml-context.
//   - Shell runs a command line through the host shell or the embedded
//     mvdan.cc/sh interpreter.
//
// Start returns a Process whose Lines yield the child's stderr as it arrives;
// Wait reports the exit code once the lines are exhausted.
package executor
