// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"
)

// GenerateCUE renders cfg as a config file accepted by the schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// afml configuration\n\n")

	fmt.Fprintf(&sb, "scratch_dir:        %q\n", cfg.ScratchDir)
	fmt.Fprintf(&sb, "python_interpreter: %q\n", cfg.PythonInterpreter)
	fmt.Fprintf(&sb, "definitions:        %q\n", cfg.Definitions)
	fmt.Fprintf(&sb, "conditions:         %q\n", cfg.Conditions)

	sb.WriteString("\nshell: {\n")
	fmt.Fprintf(&sb, "\truntime: %q\n", cfg.Shell.Runtime)
	if cfg.Shell.Program != "" {
		fmt.Fprintf(&sb, "\tprogram: %q\n", cfg.Shell.Program)
	}
	if len(cfg.Shell.Args) > 0 {
		fmt.Fprintf(&sb, "\targs: %s\n", cueList(cfg.Shell.Args))
	}
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tpatterns: %s\n", cueList(cfg.Watch.Patterns))
	fmt.Fprintf(&sb, "\tignore:   %s\n", cueList(cfg.Watch.Ignore))
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	if cfg.Metrics.File != "" {
		fmt.Fprintf(&sb, "\nmetrics: file: %q\n", cfg.Metrics.File)
	}
	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
