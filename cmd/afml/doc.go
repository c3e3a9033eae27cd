// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the afml command line: run, validate, list, context
// and config.
package cmd
