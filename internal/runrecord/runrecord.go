// SPDX-License-Identifier: MPL-2.0

// Package runrecord keeps the record of the previous run in the scratch
// directory and provides the implicit time variables.
package runrecord

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/afml/afml/pkg/params"
)

const (
	// FileName is the record file inside the scratch directory.
	FileName = "run_data.toml"

	// TimeLayout formats the time and last_time variables.
	TimeLayout = "2006-01-02-15-04-05"
)

type (
	// Record is the on-disk form.
	Record struct {
		RunID    string    `toml:"run_id"`
		LastTime time.Time `toml:"last_time"`
		Runs     int       `toml:"runs"`
	}

	// Run describes the current run.
	Run struct {
		ID       string
		Time     time.Time
		LastTime time.Time
		// Number counts runs recorded in the scratch directory, this one
		// included.
		Number int
	}
)

// Open reads the previous record from dir, replaces it with one for a run
// starting at now and returns the new run. Without a previous record,
// LastTime equals now.
func Open(dir string, now time.Time) (*Run, error) {
	run, err := Preview(dir, now)
	if err != nil {
		return nil, err
	}
	if err := run.Save(dir); err != nil {
		return nil, err
	}
	return run, nil
}

// Save replaces the record in dir with one for r.
func (r *Run) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	data, err := toml.Marshal(Record{RunID: r.ID, LastTime: r.Time, Runs: r.Number})
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	return nil
}

// Preview returns the run Open would start, leaving the record untouched.
func Preview(dir string, now time.Time) (*Run, error) {
	prev, err := Read(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	run := &Run{ID: uuid.NewString(), Time: now, LastTime: now, Number: 1}
	if prev != nil {
		if !prev.LastTime.IsZero() {
			run.LastTime = prev.LastTime
		}
		run.Number = prev.Runs + 1
	}
	return run, nil
}

// Read loads a record; a missing file yields nil without error.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run record: %w", err)
	}
	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode run record %s: %w", path, err)
	}
	return &rec, nil
}

// Vars returns the implicit scope variables time and last_time.
func (r *Run) Vars() *params.Map {
	return params.Of(
		"time", r.Time.Format(TimeLayout),
		"last_time", r.LastTime.Format(TimeLayout),
	)
}
