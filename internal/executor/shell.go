// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/types"
)

// Shell runs a command line through the host shell or the embedded shell
// interpreter. Shell steps get no run context file.
type Shell struct {
	Command string
	// Args holds the unformatted shell-args value (string or list).
	Args    any
	Runtime ShellRuntime
	// Program and ShellArgs override the host shell for the native runtime.
	Program   string
	ShellArgs []string
}

// String returns the first word of the command.
func (sh *Shell) String() string {
	if fields := strings.Fields(sh.Command); len(fields) > 0 {
		return fields[0]
	}
	return sh.Command
}

// script formats the command and its extra arguments into one command line.
// String arguments are appended verbatim; list elements are quoted.
func (sh *Shell) script(s *params.Scope) (string, error) {
	command, err := params.Text(sh.Command, s)
	if err != nil {
		return "", fmt.Errorf("command: %w", err)
	}
	if sh.Args == nil {
		return command, nil
	}
	v, err := params.Format(sh.Args, s)
	if err != nil {
		return "", fmt.Errorf("shell-args: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return command, nil
	case []any:
		args := make([]string, 0, len(t))
		for _, e := range t {
			args = append(args, params.Str(e))
		}
		return command + " " + quoteArgs(args), nil
	default:
		if extra := strings.TrimSpace(params.Str(t)); extra != "" {
			return command + " " + extra, nil
		}
		return command, nil
	}
}

// Describe renders the command line.
func (sh *Shell) Describe(s *params.Scope) (string, error) {
	return sh.script(s)
}

// Start runs the command and streams its stderr.
func (sh *Shell) Start(ctx context.Context, req StartRequest) (*Process, error) {
	script, err := sh.script(req.Scope)
	if err != nil {
		return nil, err
	}
	slog.Debug("starting shell step", "runtime", sh.Runtime, "script", script)
	if sh.Runtime == ShellVirtual {
		return sh.startVirtual(ctx, script, req)
	}
	return sh.startNative(ctx, script, req)
}

func (sh *Shell) startNative(ctx context.Context, script string, req StartRequest) (*Process, error) {
	program, err := sh.hostShell()
	if err != nil {
		return nil, err
	}
	args := append(slices.Clone(sh.hostShellArgs(program)), script)

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = req.Dir
	cmd.Env = environ(req.Env)
	cmd.Stdout = req.Stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", program, err)
	}
	return newProcess(stderr, func() (types.ExitCode, error) {
		return exitCode(cmd.Wait())
	}, nil), nil
}

func (sh *Shell) startVirtual(ctx context.Context, script string, req StartRequest) (*Process, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), sh.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	dir := req.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	stdout := req.Stdout
	if stdout == nil {
		stdout = io.Discard
	}

	pr, pw := io.Pipe()
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(environ(req.Env)...)),
		interp.StdIO(nil, stdout, pw),
	)
	if err != nil {
		pw.Close()
		return nil, fmt.Errorf("failed to create shell interpreter: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		err := runner.Run(ctx, prog)
		pw.Close()
		done <- err
	}()

	return newProcess(pr, func() (types.ExitCode, error) {
		err := <-done
		if err == nil {
			return 0, nil
		}
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return types.ExitCode(status), nil
		}
		return exitCode(err)
	}, nil), nil
}

// hostShell picks the shell program: the configured one, then $SHELL, bash
// or sh; PowerShell or cmd on Windows.
func (sh *Shell) hostShell() (string, error) {
	if sh.Program != "" {
		return sh.Program, nil
	}

	switch runtime.GOOS {
	case "windows":
		for _, name := range []string{"pwsh", "powershell", "cmd"} {
			if p, err := exec.LookPath(name); err == nil {
				return p, nil
			}
		}
	default:
		if shell := os.Getenv("SHELL"); shell != "" {
			return shell, nil
		}
		for _, name := range []string{"bash", "sh"} {
			if p, err := exec.LookPath(name); err == nil {
				return p, nil
			}
		}
	}
	return "", ErrNoShell
}

func (sh *Shell) hostShellArgs(program string) []string {
	if len(sh.ShellArgs) > 0 {
		return sh.ShellArgs
	}

	base := strings.TrimSuffix(strings.ToLower(filepath.Base(program)), ".exe")
	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		return []string{"-c"}
	}
}
