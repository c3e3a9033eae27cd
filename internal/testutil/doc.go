// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests: a controllable clock
// and fixture file setup that fails the test instead of returning errors.
package testutil
