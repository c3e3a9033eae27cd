// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the CUE parsing steps shared by project documents
// and the configuration file:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate, then decode into a Go struct or walk the unified value
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Config](schemaBytes, data, "#Config",
//	    cueutil.WithFilename("config.cue"))
//	if err != nil {
//	    return nil, err // message carries the CUE path of the bad field
//	}
//
// Callers that need field order (project documents) use Unify and iterate the
// returned value themselves.
package cueutil
