// SPDX-License-Identifier: MPL-2.0

// Package config loads afml settings with Viper, using CUE as the file format.
//
// The file is looked up at the --config path, then <user config dir>/afml/config.cue,
// then ./afml.cue. Every key can be overridden by an AFML_ environment
// variable, with dots replaced by underscores (AFML_SHELL_RUNTIME). Files are
// validated against the embedded config_schema.cue.
package config
