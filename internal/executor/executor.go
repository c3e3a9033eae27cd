// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/runctx"
	"github.com/afml/afml/pkg/types"
)

// maxLineSize bounds a single stderr line.
const maxLineSize = 1 << 20

type (
	// Executor launches the process of one step.
	Executor interface {
		// Start formats the step's fields against the scope and spawns the
		// process.
		Start(ctx context.Context, req StartRequest) (*Process, error)
		// Describe renders the command line Start would run.
		Describe(s *params.Scope) (string, error)
		// String returns the short label shown in step banners.
		String() string
	}

	// StartRequest carries what a step needs to run.
	StartRequest struct {
		// Context is written to ScratchDir for interpreter steps.
		Context    *runctx.Context
		Scope      *params.Scope
		ScratchDir string
		// Dir is the working directory; empty means the current one.
		Dir string
		// Env holds extra KEY=VALUE entries on top of the host environment.
		Env []string
		// Stdout receives the child's standard output.
		Stdout io.Writer
	}

	// Process is a running step. Lines streams the child's stderr; Wait
	// returns the exit code once the process has ended.
	Process struct {
		stderr  io.Reader
		wait    func() (types.ExitCode, error)
		cleanup func()

		mu      sync.Mutex
		drained bool
		done    bool
		code    types.ExitCode
		err     error
	}
)

func newProcess(stderr io.Reader, wait func() (types.ExitCode, error), cleanup func()) *Process {
	return &Process{stderr: stderr, wait: wait, cleanup: cleanup}
}

// Lines yields stderr lines until the stream ends. Breaking early discards the
// rest of the stream so the child never blocks on a full pipe. Lines can be
// ranged over once.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		p.mu.Lock()
		if p.drained {
			p.mu.Unlock()
			return
		}
		p.drained = true
		p.mu.Unlock()

		sc := bufio.NewScanner(p.stderr)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			line := strings.ToValidUTF8(strings.TrimSuffix(sc.Text(), "\r"), "\uFFFD")
			if !yield(line) {
				break
			}
		}
		_, _ = io.Copy(io.Discard, p.stderr)
	}
}

// Wait drains any unread output, waits for the process and releases its
// temporary files. It is safe to call more than once.
func (p *Process) Wait() (types.ExitCode, error) {
	for range p.Lines() {
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		p.done = true
		p.code, p.err = p.wait()
		if p.cleanup != nil {
			p.cleanup()
		}
	}
	return p.code, p.err
}

// formatArgs formats extra arguments. A string is split with shell word
// rules; a list gives one argument per element.
func formatArgs(raw any, s *params.Scope) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := params.Format(raw, s)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, params.Str(e))
		}
		return out, nil
	default:
		words, err := shell.Fields(params.Str(t), os.Getenv)
		if err != nil {
			return nil, fmt.Errorf("split arguments %q: %w", params.Str(t), err)
		}
		return words, nil
	}
}

// quoteArgs renders argv as a shell command line.
func quoteArgs(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = a
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}

func environ(extra []string) []string {
	return append(os.Environ(), extra...)
}

// exitCode maps a process error to an exit code; errors that carry no exit
// status are returned.
func exitCode(err error) (types.ExitCode, error) {
	if code, ok := types.ExitCodeOf(err); ok {
		if verr := code.Validate(); verr != nil {
			return 1, verr
		}
		return code, nil
	}
	if errors.Is(err, context.Canceled) {
		return 130, err
	}
	return 1, err
}
