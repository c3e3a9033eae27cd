// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/afml/afml/pkg/params"
)

func TestMatrix_OdometerOrder(t *testing.T) {
	t.Parallel()

	m := New(
		Axis{Name: "lr", Values: []any{0.1, 0.01}},
		Axis{Name: "bs", Values: []any{32, 64, 128}},
	)

	var got []string
	for in := range m.All() {
		got = append(got, in.String())
	}
	want := []string{
		"lr=0.1, bs=32",
		"lr=0.1, bs=64",
		"lr=0.1, bs=128",
		"lr=0.01, bs=32",
		"lr=0.01, bs=64",
		"lr=0.01, bs=128",
	}
	if !slices.Equal(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
	if m.Len() != 6 {
		t.Errorf("Len() = %d, want 6", m.Len())
	}
}

func TestMatrix_EmptyYieldsOneInstance(t *testing.T) {
	t.Parallel()

	var m Matrix
	count := 0
	for in := range m.All() {
		count++
		if in.Len() != 0 {
			t.Errorf("instance has %d bindings, want 0", in.Len())
		}
	}
	if count != 1 {
		t.Errorf("empty matrix yielded %d instances, want 1", count)
	}
	if !m.IsEmpty() || m.Len() != 1 {
		t.Errorf("IsEmpty() = %v, Len() = %d", m.IsEmpty(), m.Len())
	}
}

func TestMatrix_EmptyAxisYieldsNothing(t *testing.T) {
	t.Parallel()

	m := New(Axis{Name: "a", Values: []any{1}}, Axis{Name: "b"})
	for range m.All() {
		t.Fatal("matrix with an empty axis should yield no instances")
	}
}

func TestMatrix_Restartable(t *testing.T) {
	t.Parallel()

	m := New(Axis{Name: "x", Values: []any{1, 2}})
	first := slices.Collect(m.All())
	second := slices.Collect(m.All())
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("runs yielded %d and %d instances", len(first), len(second))
	}
	for i := range first {
		if first[i].String() != second[i].String() {
			t.Errorf("instance %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	m, err := FromMap(params.Of("lr", []any{0.1, 0.2}, "seed", 7))
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	axes := m.Axes()
	if axes[1].Name != "seed" || !reflect.DeepEqual(axes[1].Values, []any{7}) {
		t.Errorf("scalar axis = %+v, want seed=[7]", axes[1])
	}

	_, err = FromMap(params.Of("bad", params.Of("x", 1)))
	if !errors.Is(err, ErrInvalidMatrix) {
		t.Errorf("FromMap(mapping axis) error = %v, want ErrInvalidMatrix", err)
	}
}

func TestMerge_OverrideWins(t *testing.T) {
	t.Parallel()

	base := NewInstance(params.Of("lr", 0.1, "bs", 32))
	override := NewInstance(params.Of("bs", 64, "epochs", 5))
	got := Merge(base, override)

	if got.String() != "lr=0.1, bs=64, epochs=5" {
		t.Errorf("Merge() = %s", got)
	}
	if v, _ := base.Get("bs"); v != 32 {
		t.Errorf("Merge() modified base: bs = %v", v)
	}
}

func TestMatrix_CountProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(0, 4), 0, 4).Draw(t, "sizes")
		axes := make([]Axis, len(sizes))
		want := 1
		for i, n := range sizes {
			vals := make([]any, n)
			for j := range vals {
				vals[j] = j
			}
			axes[i] = Axis{Name: string(rune('a' + i)), Values: vals}
			want *= n
		}
		m := New(axes...)

		var seen []string
		for in := range m.All() {
			if in.Len() != len(axes) {
				t.Fatalf("instance has %d bindings, want %d", in.Len(), len(axes))
			}
			seen = append(seen, in.String())
		}
		if len(seen) != want || m.Len() != want {
			t.Fatalf("yielded %d, Len() = %d, want %d", len(seen), m.Len(), want)
		}
		if !slices.IsSorted(seen) {
			t.Fatalf("instances not in odometer order: %v", seen)
		}
	})
}

func TestMerge_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		keys := []string{"a", "b", "c", "d"}
		draw := func(label string) Instance {
			m := params.NewMap()
			for _, k := range keys {
				if rapid.Bool().Draw(t, label+k) {
					m.Set(k, rapid.IntRange(0, 9).Draw(t, label+k+"v"))
				}
			}
			return NewInstance(m)
		}
		a, b := draw("a"), draw("b")
		merged := Merge(a, b)

		for _, k := range keys {
			bv, inB := b.Get(k)
			av, inA := a.Get(k)
			mv, inM := merged.Get(k)
			switch {
			case inB:
				if !inM || mv != bv {
					t.Fatalf("%s = %v, want override %v", k, mv, bv)
				}
			case inA:
				if !inM || mv != av {
					t.Fatalf("%s = %v, want base %v", k, mv, av)
				}
			default:
				if inM {
					t.Fatalf("%s should be absent", k)
				}
			}
		}
	})
}
