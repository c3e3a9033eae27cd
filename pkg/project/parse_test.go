// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"strings"
	"testing"

	"github.com/afml/afml/pkg/params"
)

func mustDecode(t *testing.T, src string) *params.Map {
	t.Helper()
	doc, err := Decode([]byte(src), "project.yml")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return doc
}

const sampleProject = `
params:
  epochs: 3
matrix:
  lr: [0.1, 0.01]
datasets:
  - folder: data/mnist
  - name: cifar
    folder: data/cifar-{size}
    params: {size: 10}
models:
  - src: models/cnn.py:build
  - name: mlp
    src: pkg.models.mlp:make
jobs:
  - name: train
    dataset: mnist
    model: cnn
    steps:
      - script: train.py
      - name: report
        shell: echo done
  - steps:
      - script: eval.py
`

func TestParse(t *testing.T) {
	t.Parallel()

	p, err := Parse(mustDecode(t, sampleProject), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := len(p.Datasets); got != 2 {
		t.Fatalf("len(Datasets) = %d, want 2", got)
	}
	if got := p.Datasets[0].DisplayName(); got != "mnist" {
		t.Errorf("Datasets[0].DisplayName() = %q, want %q", got, "mnist")
	}
	if got := p.Models[0].DisplayName(); got != "cnn" {
		t.Errorf("Models[0].DisplayName() = %q, want %q", got, "cnn")
	}
	if m := p.Models[1]; m.Module != "pkg.models.mlp" || m.Callable != "make" {
		t.Errorf("Models[1] = %s:%s, want pkg.models.mlp:make", m.Module, m.Callable)
	}
	if got := p.Matrix.Len(); got != 2 {
		t.Errorf("Matrix.Len() = %d, want 2", got)
	}

	if got := len(p.Jobs); got != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", got)
	}
	if got := p.Jobs[1].DisplayName(); got != "Job 2" {
		t.Errorf("Jobs[1].DisplayName() = %q, want %q", got, "Job 2")
	}

	// Step indexes run across jobs.
	var names []string
	for _, j := range p.Jobs {
		for _, s := range j.Steps {
			names = append(names, s.DisplayName())
		}
	}
	if got := strings.Join(names, ","); got != "Step 1,report,Step 3" {
		t.Errorf("step names = %q, want %q", got, "Step 1,report,Step 3")
	}
	if p.Jobs[0].Dataset.Kind != RefName {
		t.Errorf("Jobs[0].Dataset.Kind = %v, want name", p.Jobs[0].Dataset.Kind)
	}
}

func TestParseInvalidDefinitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		key  string
	}{
		{"dataset without folder", "datasets: [{name: a}]", "folder"},
		{"model without src", "models: [{name: a}]", "src"},
		{"model src without callable", "models: [{src: 'cnn.py'}]", "src"},
		{"model src with empty callable", "models: [{src: 'cnn.py:'}]", "src"},
		{"job without steps", "jobs: [{name: a}]", "steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := mustDecode(t, tt.src)
			_, err := Parse(doc, ParseOptions{Policy: DefinitionsStrict})
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("Parse() error = %v, want ErrInvalidDefinition", err)
			}
			var de *DefinitionError
			if !errors.As(err, &de) || de.Key != tt.key || de.Position != 1 {
				t.Errorf("DefinitionError = %+v, want key %q at position 1", de, tt.key)
			}

			p, err := Parse(doc, ParseOptions{Policy: DefinitionsLenient})
			if err != nil {
				t.Fatalf("lenient Parse() error = %v", err)
			}
			if n := len(p.Datasets) + len(p.Models) + len(p.Jobs); n != 0 {
				t.Errorf("lenient Parse() kept %d definitions, want 0", n)
			}
		})
	}
}

func TestParseLenientKeepsCountersDense(t *testing.T) {
	t.Parallel()

	doc := mustDecode(t, `
jobs:
  - steps: [{script: a.py}]
  - name: broken
  - steps: [{script: b.py}, 42, {script: c.py}]
`)
	p, err := Parse(doc, ParseOptions{Policy: DefinitionsLenient})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(p.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(p.Jobs))
	}
	if got := p.Jobs[1].DisplayName(); got != "Job 2" {
		t.Errorf("Jobs[1].DisplayName() = %q, want %q", got, "Job 2")
	}
	if got := p.Jobs[1].Steps[1].DisplayName(); got != "Step 3" {
		t.Errorf("last step = %q, want %q", got, "Step 3")
	}
}

func TestParseInvalidPolicy(t *testing.T) {
	t.Parallel()

	_, err := Parse(params.NewMap(), ParseOptions{Policy: "sloppy"})
	if !errors.Is(err, ErrInvalidDefinitionPolicy) {
		t.Errorf("Parse() error = %v, want ErrInvalidDefinitionPolicy", err)
	}
}

func TestProjectJob(t *testing.T) {
	t.Parallel()

	p, err := Parse(mustDecode(t, sampleProject), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		selector string
		want     string
	}{
		{"train", "train"},
		{"1", "train"},
		{"2", "Job 2"},
		{"Job 2", "Job 2"},
	}
	for _, tt := range tests {
		j, err := p.Job(tt.selector)
		if err != nil {
			t.Errorf("Job(%q) error = %v", tt.selector, err)
			continue
		}
		if got := j.DisplayName(); got != tt.want {
			t.Errorf("Job(%q) = %q, want %q", tt.selector, got, tt.want)
		}
	}

	for _, sel := range []string{"", "3", "deploy"} {
		if _, err := p.Job(sel); !errors.Is(err, ErrNotFound) {
			t.Errorf("Job(%q) error = %v, want ErrNotFound", sel, err)
		}
	}
}

func TestModelDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		module string
		want   string
	}{
		{"models/cnn.py", "cnn"},
		{"cnn.py", "cnn"},
		{`models\rnn.py`, "rnn"},
		{"pkg.models.mlp", "mlp"},
		{"mlp", "mlp"},
	}
	for _, tt := range tests {
		m := &Model{Module: tt.module, Callable: "f"}
		if got := m.DisplayName(); got != tt.want {
			t.Errorf("Model{Module: %q}.DisplayName() = %q, want %q", tt.module, got, tt.want)
		}
	}
}

func TestDefinitionErrorMessage(t *testing.T) {
	t.Parallel()

	err := &DefinitionError{Kind: "dataset", Position: 2, Key: "folder", Definition: params.Of("name", "a")}
	want := `dataset #2 {'name': 'a'}: missing required key "folder"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
