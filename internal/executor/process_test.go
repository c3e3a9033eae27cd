// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/runctx"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func collect(p *Process) []string {
	var lines []string
	for line := range p.Lines() {
		lines = append(lines, line)
	}
	return lines
}

func TestVirtualShell(t *testing.T) {
	t.Parallel()

	sh := &Shell{
		Command: "echo one {lr} >&2; echo out; echo two >&2; exit 3",
		Runtime: ShellVirtual,
	}
	var stdout bytes.Buffer
	proc, err := sh.Start(context.Background(), StartRequest{
		Scope:  params.NewScope(params.Of("lr", 0.1)),
		Dir:    t.TempDir(),
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := collect(proc); !slices.Equal(got, []string{"one 0.1", "two"}) {
		t.Errorf("Lines() = %q, want [one 0.1 two]", got)
	}
	code, err := proc.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Wait() = %d, want 3", code)
	}
	if got := stdout.String(); got != "out\n" {
		t.Errorf("stdout = %q, want %q", got, "out\n")
	}
}

func TestVirtualShellEarlyBreak(t *testing.T) {
	t.Parallel()

	sh := &Shell{Command: "for i in 1 2 3 4 5; do echo $i >&2; done", Runtime: ShellVirtual}
	proc, err := sh.Start(context.Background(), StartRequest{Scope: params.NewScope(), Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	for line := range proc.Lines() {
		if line == "2" {
			break
		}
	}
	if code, err := proc.Wait(); err != nil || code != 0 {
		t.Errorf("Wait() = %d, %v, want 0, nil", code, err)
	}
}

func TestNativeShell(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	sh := &Shell{Command: "echo failing >&2; exit 2", Program: "sh", Runtime: ShellNative}
	proc, err := sh.Start(context.Background(), StartRequest{Scope: params.NewScope(), Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := collect(proc); !slices.Equal(got, []string{"failing"}) {
		t.Errorf("Lines() = %q, want [failing]", got)
	}
	if code, err := proc.Wait(); err != nil || code != 2 {
		t.Errorf("Wait() = %d, %v, want 2, nil", code, err)
	}
}

func TestInterpreterContextFile(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	script := filepath.Join(dir, "check.sh")
	body := `test "$1" = "--afml-context" || exit 9
test -f "$2" && echo "context present" >&2
test "$AFML_CONTEXT" = "$2" && echo "env matches" >&2
echo "args $3 $4" >&2
`
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	scratch := filepath.Join(dir, ".afml")
	in := &Interpreter{Script: script, Interpreter: "sh", Args: "--lr {lr}"}
	proc, err := in.Start(context.Background(), StartRequest{
		Context:    &runctx.Context{Job: runctx.Entity{Index: 1}, Step: runctx.Entity{Index: 4}},
		Scope:      params.NewScope(params.Of("lr", 0.5)),
		ScratchDir: scratch,
		Dir:        dir,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"context present", "env matches", "args --lr 0.5"}
	if got := collect(proc); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
	if code, err := proc.Wait(); err != nil || code != 0 {
		t.Errorf("Wait() = %d, %v, want 0, nil", code, err)
	}
	if _, err := os.Stat(filepath.Join(scratch, "context-j1-s4.json")); !os.IsNotExist(err) {
		t.Errorf("context file still present after Wait(): %v", err)
	}
}

func TestInterpreterRemovesContextOnSpawnFailure(t *testing.T) {
	t.Parallel()

	scratch := t.TempDir()
	in := &Interpreter{Script: "train.py", Interpreter: "afml-no-such-interpreter"}
	_, err := in.Start(context.Background(), StartRequest{
		Context:    &runctx.Context{},
		Scope:      params.NewScope(),
		ScratchDir: scratch,
	})
	if err == nil || !strings.Contains(err.Error(), "afml-no-such-interpreter") {
		t.Fatalf("Start() error = %v, want a spawn failure", err)
	}
	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Errorf("scratch dir holds %d files, want 0", len(entries))
	}
}

func TestInterpreterFormatErrorRemovesContext(t *testing.T) {
	t.Parallel()

	scratch := t.TempDir()
	in := &Interpreter{Script: "{missing}.py", Interpreter: "python"}
	if _, err := in.Start(context.Background(), StartRequest{
		Context:    &runctx.Context{},
		Scope:      params.NewScope(),
		ScratchDir: scratch,
	}); err == nil {
		t.Fatal("Start() error = nil, want a format error")
	}
	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Errorf("scratch dir holds %d files, want 0", len(entries))
	}
}
