// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/afml/afml/internal/config"
	"github.com/afml/afml/internal/runrecord"
	"github.com/afml/afml/internal/testutil"
)

const sweepProject = `
params:
  greeting: hello
jobs:
  - name: greet
    matrix:
      who: [a, b]
    steps:
      - shell: echo {greeting} {who}
  - name: never
    if:
      file: missing.txt
    steps:
      - shell: echo unreachable
`

// runApp runs the CLI in-process. The logger and environment are global, so
// callers must not run in parallel.
func runApp(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv(config.DirEnv, t.TempDir())
	t.Setenv("AFML_SHELL_RUNTIME", "virtual")

	var out, errOut bytes.Buffer
	code = NewApp(&out, &errOut).Run(context.Background(), args)
	return out.String(), errOut.String(), code
}

func writeProject(t *testing.T, src string) string {
	t.Helper()
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"project.yml": src})
	return filepath.Join(dir, "project.yml")
}

func TestRun_MatrixSweep(t *testing.T) {
	path := writeProject(t, sweepProject)

	stdout, stderr, code := runApp(t, "run", "-p", path)
	if code != 0 {
		t.Fatalf("run exit = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{
		"==== greet ====",
		" {'who': 'a'}---",
		"---- Step 1 [echo] ----",
		"hello a",
		"hello b",
		"==== never ====",
		"Skipping job",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "unreachable") {
		t.Errorf("skipped job ran:\n%s", stdout)
	}

	rec, err := runrecord.Read(filepath.Join(filepath.Dir(path), ".afml", runrecord.FileName))
	if err != nil || rec == nil {
		t.Fatalf("run record not written: %v", err)
	}
	if rec.Runs != 1 {
		t.Errorf("Runs = %d, want 1", rec.Runs)
	}
}

func TestRun_SelectedJob(t *testing.T) {
	path := writeProject(t, sweepProject)

	stdout, _, code := runApp(t, "run", "-p", path, "-j", "2")
	if code != 0 {
		t.Fatalf("run exit = %d", code)
	}
	if strings.Contains(stdout, "==== greet ====") {
		t.Errorf("unselected job ran:\n%s", stdout)
	}
	if !strings.Contains(stdout, "==== never ====") {
		t.Errorf("selected job missing:\n%s", stdout)
	}
}

func TestRun_FailedStepExitCode(t *testing.T) {
	path := writeProject(t, `
jobs:
  - name: broken
    steps:
      - shell: exit 3
      - shell: echo after
`)

	stdout, stderr, code := runApp(t, "run", "-p", path)
	if code != 3 {
		t.Errorf("run exit = %d, want 3", code)
	}
	if !strings.Contains(stdout, "ERROR: Step execution failed!") {
		t.Errorf("stdout missing failure banner:\n%s", stdout)
	}
	if strings.Contains(stdout, "after") {
		t.Errorf("step after the failure ran:\n%s", stdout)
	}
	if !strings.Contains(stderr, "failed to run project: broken / Step 1") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_DryRun(t *testing.T) {
	path := writeProject(t, sweepProject)

	stdout, _, code := runApp(t, "run", "-p", path, "--dry-run")
	if code != 0 {
		t.Fatalf("run exit = %d", code)
	}
	if !strings.Contains(stdout, "$ echo hello a") {
		t.Errorf("stdout missing planned command:\n%s", stdout)
	}
	if strings.Contains(stdout, "\nhello a\n") {
		t.Errorf("dry run executed a step:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), ".afml", runrecord.FileName)); !os.IsNotExist(err) {
		t.Errorf("dry run wrote a run record: %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name       string
		args       func(t *testing.T) []string
		wantStderr string
	}{
		{
			name:       "missing project",
			args:       func(t *testing.T) []string { return []string{"run", "-p", filepath.Join(t.TempDir(), "none.yml")} },
			wantStderr: "failed to load project",
		},
		{
			name:       "dry run with watch",
			args:       func(t *testing.T) []string { return []string{"run", "--dry-run", "--watch"} },
			wantStderr: errDryRunWatch.Error(),
		},
		{
			name: "unknown job",
			args: func(t *testing.T) []string {
				return []string{"run", "-p", writeProject(t, sweepProject), "-j", "nope"}
			},
			wantStderr: `job "nope" not found`,
		},
		{
			name: "invalid definition policy",
			args: func(t *testing.T) []string {
				return []string{"run", "-p", writeProject(t, sweepProject), "--definitions", "loose"}
			},
			wantStderr: "invalid definition policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runApp(t, tt.args(t)...)
			if code != 1 {
				t.Errorf("exit = %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestRun_ProjectFlagBeforeCommand(t *testing.T) {
	path := writeProject(t, sweepProject)

	stdout, stderr, code := runApp(t, "-p", path, "run", "-j", "greet")
	if code != 0 {
		t.Fatalf("run exit = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "hello b") {
		t.Errorf("stdout = %q, want the greet job output", stdout)
	}
}

func TestRun_RejectedRunKeepsRecord(t *testing.T) {
	path := writeProject(t, `
jobs:
  - steps:
      - script: make
`)
	_, stderr, code := runApp(t, "run", "-p", path)
	if code != 1 {
		t.Errorf("exit = %d, want 1; stderr:\n%s", code, stderr)
	}
	record := filepath.Join(filepath.Dir(path), ".afml", runrecord.FileName)
	if _, err := os.Stat(record); !os.IsNotExist(err) {
		t.Errorf("Stat(%s) error = %v, want the record left unwritten", record, err)
	}
}

func TestValidate(t *testing.T) {
	good := writeProject(t, `
datasets:
  - folder: data/mnist
jobs:
  - dataset: mnist
    steps:
      - shell: echo ok
`)
	stdout, stderr, code := runApp(t, "validate", "-p", good)
	if code != 0 {
		t.Fatalf("validate exit = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "1 jobs, 1 datasets, 0 models") {
		t.Errorf("stdout = %q", stdout)
	}

	bad := writeProject(t, `
jobs:
  - dataset: cifar
    steps:
      - shell: echo ok
`)
	_, stderr, code = runApp(t, "validate", "-p", bad)
	if code == 0 {
		t.Fatal("validate accepted a reference to an undefined dataset")
	}
	if !strings.Contains(stderr, `dataset "cifar" not found`) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestList(t *testing.T) {
	path := writeProject(t, `
datasets:
  - folder: data/mnist
models:
  - name: cnn
    src: models.py:CNN
matrix:
  seed: [1, 2]
jobs:
  - name: train
    steps:
      - python: train.py
      - shell: echo done
`)
	stdout, _, code := runApp(t, "list", "-p", path)
	if code != 0 {
		t.Fatalf("list exit = %d", code)
	}
	for _, want := range []string{"mnist data/mnist", "cnn models.py:CNN", "seed×2", "1. train", "Step 1 [train.py]", "Step 2 [echo]"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigDump(t *testing.T) {
	stdout, _, code := runApp(t, "config", "dump", "--format", "json")
	if code != 0 {
		t.Fatalf("config dump exit = %d", code)
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if cfg.Shell.Runtime != "virtual" {
		t.Errorf("Shell.Runtime = %q, want the environment override", cfg.Shell.Runtime)
	}

	_, stderr, code := runApp(t, "config", "dump", "--format", "xml")
	if code != 1 || !strings.Contains(stderr, `unknown format "xml"`) {
		t.Errorf("exit = %d, stderr = %q", code, stderr)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.DirEnv, dir)

	var out bytes.Buffer
	if code := NewApp(&out, &out).Run(context.Background(), []string{"config", "init"}); code != 0 {
		t.Fatalf("config init exit = %d: %s", code, out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}
