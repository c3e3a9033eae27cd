// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"mvdan.cc/sh/v3/shell"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/types"
)

// ContextEnv names the environment variable that also carries the context
// file path.
const ContextEnv = "AFML_CONTEXT"

// Interpreter runs a script or module with an interpreter and passes the run
// context file with --afml-context.
type Interpreter struct {
	// Script is a script path or, with Module set, a module name.
	Script string
	Module bool
	// Interpreter is a command line; it may carry its own arguments.
	Interpreter string
	// Args holds the unformatted python-args value (string or list).
	Args any

	customInterpreter bool
}

// String returns the script, prefixed by the interpreter when one was set on
// the step.
func (in *Interpreter) String() string {
	if in.customInterpreter && in.Interpreter != DefaultInterpreter {
		return in.Interpreter + " " + in.Script
	}
	return in.Script
}

// argv builds the command line with the context flag pointing at ctxFile.
func (in *Interpreter) argv(s *params.Scope, ctxFile string) ([]string, error) {
	interpreter, err := params.Text(in.Interpreter, s)
	if err != nil {
		return nil, fmt.Errorf("python-interpreter: %w", err)
	}
	words, err := shell.Fields(interpreter, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("python-interpreter %q: %w", interpreter, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("python-interpreter is empty")
	}
	script, err := params.Text(in.Script, s)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	args, err := formatArgs(in.Args, s)
	if err != nil {
		return nil, fmt.Errorf("python-args: %w", err)
	}

	argv := words
	if in.Module {
		argv = append(argv, "-m")
	}
	argv = append(argv, script, "--afml-context", ctxFile)
	return append(argv, args...), nil
}

// Describe renders the command line with a placeholder context path.
func (in *Interpreter) Describe(s *params.Scope) (string, error) {
	argv, err := in.argv(s, "<context>")
	if err != nil {
		return "", err
	}
	return quoteArgs(argv), nil
}

// Start writes the run context, spawns the interpreter and streams its
// stderr. The context file is removed when the process is waited on, or right
// away if the spawn fails.
func (in *Interpreter) Start(ctx context.Context, req StartRequest) (*Process, error) {
	if req.Context == nil {
		return nil, errors.New("interpreter step started without a run context")
	}
	scratch, err := filepath.Abs(req.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch dir: %w", err)
	}
	// The child runs in req.Dir, so the path it receives must not be relative.
	ctxFile, err := req.Context.WriteFile(scratch)
	if err != nil {
		return nil, err
	}
	cleanup := func() {
		if err := os.Remove(ctxFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove run context", "path", ctxFile, "error", err)
		}
	}

	argv, err := in.argv(req.Scope, ctxFile)
	if err != nil {
		cleanup()
		return nil, err
	}
	slog.Debug("starting interpreter step", "argv", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = environ(append(req.Env, ContextEnv+"="+ctxFile))
	cmd.Stdout = req.Stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	return newProcess(stderr, func() (types.ExitCode, error) {
		return exitCode(cmd.Wait())
	}, cleanup), nil
}
