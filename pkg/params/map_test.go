// SPDX-License-Identifier: MPL-2.0

package params

import (
	"encoding/json"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMap_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	m := Of("a", 1, "b", 2, "c", 3)
	m.Set("a", 10)
	m.Delete("b")
	m.Set("d", 4)

	want := []string{"a", "c", "d"}
	if !reflect.DeepEqual(m.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", m.Keys(), want)
	}
	if v, _ := m.Get("a"); v != 10 {
		t.Errorf("Get(a) = %v, want 10", v)
	}
}

func TestMap_NilIsEmpty(t *testing.T) {
	t.Parallel()

	var m *Map
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if _, ok := m.Get("x"); ok {
		t.Error("Get() on nil map should report absent")
	}
	for range m.All() {
		t.Error("All() on nil map should not yield")
	}
	if c := m.Clone(); c == nil || c.Len() != 0 {
		t.Error("Clone() of nil map should be an empty map")
	}
}

func TestMap_MergeOverrides(t *testing.T) {
	t.Parallel()

	base := Of("a", 1, "b", 2)
	base.Merge(Of("b", 20, "c", 30))
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(base.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", base.Keys(), want)
	}
	if v, _ := base.Get("b"); v != 20 {
		t.Errorf("Get(b) = %v, want 20", v)
	}
}

func TestMap_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	const doc = `{"z":1,"a":{"y":2.5,"b":[1,"x",null,true]}}`
	var m Map
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"z", "a"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, _ := m.Get("z"); v != 1 {
		t.Errorf("z = %#v, want int 1", v)
	}

	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != doc {
		t.Errorf("Marshal() = %s, want %s", out, doc)
	}
}

func TestMap_YAML(t *testing.T) {
	t.Parallel()

	const doc = `
defaults: &defaults
  lr: 0.1
  epochs: 10
train:
  <<: *defaults
  epochs: 20
  name: run
`
	var m Map
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"defaults", "train"}) {
		t.Errorf("Keys() = %v", got)
	}
	v, _ := m.Get("train")
	train, ok := v.(*Map)
	if !ok {
		t.Fatalf("train is %T, want *Map", v)
	}
	if got := train.Keys(); !reflect.DeepEqual(got, []string{"lr", "epochs", "name"}) {
		t.Errorf("train.Keys() = %v", got)
	}
	if epochs, _ := train.Get("epochs"); epochs != 20 {
		t.Errorf("epochs = %v, want 20", epochs)
	}
	if lr, _ := train.Get("lr"); lr != 0.1 {
		t.Errorf("lr = %v, want 0.1", lr)
	}
}

func TestMap_MarshalYAMLKeepsOrder(t *testing.T) {
	t.Parallel()

	m := Of("z", 1, "a", Of("b", "x"), "list", []any{true, 0.5})
	out, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := "z: 1\na:\n    b: x\nlist:\n    - true\n    - 0.5\n"
	if string(out) != want {
		t.Errorf("Marshal() = %q, want %q", out, want)
	}
}

type attrs struct{ m *Map }

func (a attrs) Attributes() *Map { return a.m }

func TestMap_EncodesAttributesOfEntities(t *testing.T) {
	t.Parallel()

	m := Of("sweep", attrs{Of("lr", 0.1)}, "list", []any{attrs{Of("name", "a")}})

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"sweep":{"lr":0.1},"list":[{"name":"a"}]}`; string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}

	y, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if want := "sweep:\n    lr: 0.1\nlist:\n    - name: a\n"; string(y) != want {
		t.Errorf("yaml.Marshal() = %q, want %q", y, want)
	}
}
