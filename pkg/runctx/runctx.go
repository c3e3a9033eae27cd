// SPDX-License-Identifier: MPL-2.0

// Package runctx defines the run context handed to interpreter steps. The
// runner writes it as JSON before launching a step; the child locates it
// through the --afml-context flag.
package runctx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/project"
)

const (
	// Version is the layout version written to every context file.
	Version = 1

	// FlagName is the child-side flag carrying the context file path.
	FlagName = "afml-context"
)

// ErrUnsupportedVersion is returned when loading a context written by a
// different layout version.
var ErrUnsupportedVersion = errors.New("unsupported run context version")

type (
	// Context is the snapshot of a step's resolved state.
	Context struct {
		Version       int         `json:"version"`
		RunID         string      `json:"run_id,omitempty"`
		Job           Entity      `json:"job"`
		Step          Entity      `json:"step"`
		ProjectParams *params.Map `json:"project_params"`
		JobParams     *params.Map `json:"job_params"`
		StepParams    *params.Map `json:"step_params"`
		Dataset       *Dataset    `json:"dataset,omitempty"`
		Model         *Model      `json:"model,omitempty"`
		Matrix        *params.Map `json:"matrix,omitempty"`
		Time          string      `json:"time,omitempty"`
		LastTime      string      `json:"last_time,omitempty"`
	}

	// Entity identifies the owning job or step.
	Entity struct {
		Name  string `json:"name"`
		Index int    `json:"index"`
	}

	// Dataset is the resolved dataset.
	Dataset struct {
		Name   string      `json:"name"`
		Folder string      `json:"folder"`
		Params *params.Map `json:"params"`
	}

	// Model is the resolved model.
	Model struct {
		Name     string      `json:"name"`
		Module   string      `json:"module"`
		Callable string      `json:"callable"`
		Params   *params.Map `json:"params"`
	}
)

// DatasetOf converts a resolved project dataset.
func DatasetOf(d *project.Dataset) *Dataset {
	if d == nil {
		return nil
	}
	return &Dataset{Name: d.DisplayName(), Folder: d.Folder, Params: d.Params.Clone()}
}

// ModelOf converts a resolved project model.
func ModelOf(m *project.Model) *Model {
	if m == nil {
		return nil
	}
	return &Model{Name: m.DisplayName(), Module: m.Module, Callable: m.Callable, Params: m.Params.Clone()}
}

// Source returns the "path:callable" form.
func (m *Model) Source() string { return m.Module + ":" + m.Callable }

// Params returns project, job and step params merged in that order.
func (c *Context) Params() *params.Map {
	out := params.NewMap()
	out.Merge(c.ProjectParams)
	out.Merge(c.JobParams)
	out.Merge(c.StepParams)
	return out
}

// FileName returns the context file name for the owning job and step.
func (c *Context) FileName() string {
	return fmt.Sprintf("context-j%d-s%d.json", c.Job.Index, c.Step.Index)
}

// WriteFile writes the context to dir and returns the file path. The caller
// owns the file and removes it when the step ends.
func (c *Context) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	c.Version = Version
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run context: %w", err)
	}
	path := filepath.Join(dir, c.FileName())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write run context: %w", err)
	}
	return path, nil
}

// Load reads a context file.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run context: %w", err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode run context %s: %w", path, err)
	}
	if c.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Version)
	}
	return &c, nil
}

// Current loads the context named by --afml-context in args (program name
// excluded). It returns nil without error when the flag is absent. Other
// arguments are left for the program's own parser.
func Current(args []string) (*Context, error) {
	fs := pflag.NewFlagSet(FlagName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String(FlagName, "", "run context file")
	if err := fs.Parse(contextArgs(args)); err != nil {
		return nil, err
	}
	if *path == "" {
		return nil, nil
	}
	return Load(*path)
}

// contextArgs keeps only the --afml-context flag and its value.
func contextArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		switch {
		case strings.HasPrefix(a, "--"+FlagName+"="):
			out = append(out, a)
		case a == "--"+FlagName && i+1 < len(args):
			out = append(out, a, args[i+1])
			i++
		}
	}
	return out
}
