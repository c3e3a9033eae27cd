// SPDX-License-Identifier: MPL-2.0

// Package issue carries user-facing failure context: actionable errors with
// suggestions, and a catalog of Markdown help pages rendered with glamour.
package issue
