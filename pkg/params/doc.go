// SPDX-License-Identifier: MPL-2.0

// Package params implements the parameter formatter used to resolve
// `{expr}` references in project definitions.
//
// Values are resolved against a Scope, an ordered accumulation of names built
// up layer by layer. Strings follow two rules:
//
//   - A string made of exactly one replacement field without conversion or
//     format spec ("{batch_size}") is evaluated as a restricted expression and
//     its native value is returned, so numbers, lists, mappings and entity
//     objects keep their type.
//   - Any other string is interpolated ("run-{lr:.3f}") using the familiar
//     `{name[!conv][:spec]}` replacement-field syntax and yields a string.
//
// Mappings are formatted left to right and every formatted value is visible to
// the keys that follow it, which lets a definition reference its siblings:
//
//	params:
//	  base: /data
//	  train: "{base}/train"
//
// The restricted expression language is HCL's expression syntax without
// functions: literals, variables, attribute and index access, arithmetic,
// comparison, logical and (parenthesised) conditional operators.
package params
