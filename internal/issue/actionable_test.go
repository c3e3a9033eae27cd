// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such file")
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load project"}, "failed to load project"},
		{"with resource", &ActionableError{Operation: "load project", Resource: "project.yml"}, "failed to load project: project.yml"},
		{"with cause", &ActionableError{Operation: "load project", Resource: "project.yml", Cause: cause}, "failed to load project: project.yml: no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("permission denied")
	err := &ActionableError{
		Operation:   "write run record",
		Suggestions: []string{"Check the scratch directory", "Set scratch_dir"},
		Cause:       fmt.Errorf("open .afml/run_data.toml: %w", root),
	}

	short := err.Format(false)
	if !strings.Contains(short, "\n  • Check the scratch directory\n  • Set scratch_dir") {
		t.Errorf("Format(false) = %q, want bulleted suggestions", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) = %q, should not show the chain", short)
	}

	long := err.Format(true)
	if !strings.Contains(long, "Error chain:\n  1. open .afml/run_data.toml: permission denied\n  2. permission denied") {
		t.Errorf("Format(true) = %q, want the error chain", long)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	c := NewErrorContext().
		WithOperation("load configuration").
		WithResource("afml.cue").
		WithSuggestion("Check the syntax").
		WithSuggestion("Run 'afml config init'", "Run 'afml config path'").
		WithIssue(ConfigLoadFailedId).
		Wrap(cause)

	err := c.Build()
	if err == nil {
		t.Fatal("Build() = nil")
	}
	if len(err.Suggestions) != 3 {
		t.Errorf("Suggestions = %q, want 3", err.Suggestions)
	}
	if !errors.Is(err, cause) {
		t.Error("Build() should wrap the cause")
	}

	c.WithSuggestion("later")
	if len(err.Suggestions) != 3 {
		t.Error("Build() result changed after the builder was reused")
	}

	if NewErrorContext().Build() != nil || NewErrorContext().BuildError() != nil {
		t.Error("Build() without operation should be nil")
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap(nil, "op", "res") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	err := Wrap(errors.New("x"), "open project", "p.yml")
	if err.Error() != "failed to open project: p.yml: x" {
		t.Errorf("Wrap() = %q", err)
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	inner := NewErrorContext().WithOperation("format step").WithIssue(FormatErrorId).Wrap(errors.New("x")).BuildError()
	outer := Wrap(fmt.Errorf("run: %w", inner), "run project", "")

	if got := IssueOf(outer); got == nil || got.Id() != FormatErrorId {
		t.Errorf("IssueOf() = %v, want FormatErrorId", got)
	}
	if got := IssueOf(errors.New("plain")); got != nil {
		t.Errorf("IssueOf(plain) = %v, want nil", got)
	}
}
