// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"testing"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code        ExitCode
		wantValid   bool
		wantSuccess bool
		wantSignal  bool
		wantMissing bool
	}{
		{code: 0, wantValid: true, wantSuccess: true},
		{code: 1, wantValid: true},
		{code: 2, wantValid: true},
		{code: 127, wantValid: true, wantMissing: true},
		{code: 128, wantValid: true},
		{code: 130, wantValid: true, wantSignal: true},
		{code: 137, wantValid: true, wantSignal: true},
		{code: 255, wantValid: true, wantSignal: true},
		{code: -1},
		{code: 256},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()

			err := tt.code.Validate()
			if (err == nil) != tt.wantValid {
				t.Errorf("ExitCode(%d).Validate() = %v, wantValid %v", tt.code, err, tt.wantValid)
			}
			if err != nil && !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("ExitCode(%d).Validate() does not wrap ErrInvalidExitCode: %v", tt.code, err)
			}
			if got := tt.code.IsSuccess(); got != tt.wantSuccess {
				t.Errorf("ExitCode(%d).IsSuccess() = %v, want %v", tt.code, got, tt.wantSuccess)
			}
			if got := tt.code.IsSignal(); got != tt.wantSignal {
				t.Errorf("ExitCode(%d).IsSignal() = %v, want %v", tt.code, got, tt.wantSignal)
			}
			if got := tt.code.IsNotFound(); got != tt.wantMissing {
				t.Errorf("ExitCode(%d).IsNotFound() = %v, want %v", tt.code, got, tt.wantMissing)
			}
		})
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	if code, ok := ExitCodeOf(nil); !ok || code != 0 {
		t.Errorf("ExitCodeOf(nil) = %d, %v, want 0, true", code, ok)
	}
	if _, ok := ExitCodeOf(errors.New("spawn failed")); ok {
		t.Error("ExitCodeOf(plain error) reported an exit status")
	}

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	err := exec.CommandContext(t.Context(), "sh", "-c", "exit 3").Run()
	code, ok := ExitCodeOf(fmt.Errorf("step: %w", err))
	if !ok || code != 3 {
		t.Errorf("ExitCodeOf(exit 3) = %d, %v, want 3, true", code, ok)
	}
}
