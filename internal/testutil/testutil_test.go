// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewFakeClock(start)
	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	clock.Advance(90 * time.Second)
	if got := clock.Now().Sub(start); got != 90*time.Second {
		t.Errorf("after Advance, elapsed = %v, want 1m30s", got)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", got, later)
	}
}

func TestFakeClock_DefaultTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NewFakeClock(time.Time{}).Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeClock_Concurrent(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock(time.Time{})
	start := clock.Now()
	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			clock.Advance(time.Second)
			_ = clock.Now()
		})
	}
	wg.Wait()
	if got := clock.Now().Sub(start); got != 10*time.Second {
		t.Errorf("elapsed = %v, want 10s", got)
	}
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := WriteFiles(t, t.TempDir(), map[string]string{
		"project.yml":      "jobs: []\n",
		"data/mnist/a.csv": "x\n",
	})
	got, err := os.ReadFile(filepath.Join(dir, "data", "mnist", "a.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "x\n" {
		t.Errorf("content = %q, want %q", got, "x\n")
	}
}
