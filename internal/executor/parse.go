// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/afml/afml/pkg/params"
	"github.com/afml/afml/pkg/project"
)

var (
	interpreterKeys = []string{"python", "python-module"}
	shellKeys       = []string{"shell", "command"}

	shellExtensions = map[string]bool{".sh": true, ".bash": true, ".bat": true, ".cmd": true, ".ps1": true}
)

// Defaults are the configured fallbacks for keys a step does not set.
type Defaults struct {
	Interpreter  string
	ShellRuntime ShellRuntime
	// Shell overrides the host shell program for the native runtime.
	Shell string
	// ShellArgs are passed to Shell before the command line.
	ShellArgs []string
}

// Parse builds the executor described by a step definition. The variant is
// chosen by the `mode` key, then by variant keys (python, python-module,
// shell, command), then by the extension of `script`. Failures are
// *project.DefinitionError values.
func Parse(def *params.Map, d Defaults) (Executor, error) {
	mode := ModeAuto
	if raw, ok := def.Get("mode"); ok && raw != nil {
		mode = Mode(params.Str(raw))
		if ok, errs := mode.IsValid(); !ok {
			return nil, invalid(def, "mode", errs[0].Error())
		}
	}

	switch mode {
	case ModePython, ModePythonModule:
		return variant(parseInterpreter(def, mode, d))
	case ModeShell:
		return variant(parseShell(def, d))
	}

	py, sh := present(def, interpreterKeys...), present(def, shellKeys...)
	switch {
	case len(py) > 0 && len(sh) > 0:
		return nil, invalid(def, py[0], fmt.Sprintf("conflicting executor keys %s", strings.Join(append(py, sh...), ", ")))
	case len(py) > 0:
		return variant(parseInterpreter(def, mode, d))
	case len(sh) > 0:
		return variant(parseShell(def, d))
	}

	raw, ok := def.Get("script")
	if !ok || raw == nil {
		return nil, invalid(def, "script", "no executor key found (expected script, python, python-module, shell or command)")
	}
	script := strings.TrimSpace(params.Str(raw))
	var ext string
	if fields := strings.Fields(script); len(fields) > 0 {
		ext = strings.ToLower(filepath.Ext(fields[0]))
	}
	switch {
	case ext == ".py":
		return variant(parseInterpreter(def, mode, d))
	case shellExtensions[ext]:
		return variant(parseShell(def, d))
	case strings.HasPrefix(script, "-m"), looksLikeModule(script):
		return variant(parseInterpreter(def, mode, d))
	}
	return nil, invalid(def, "script", fmt.Sprintf("cannot infer executor for script %q; set mode", script))
}

func parseInterpreter(def *params.Map, mode Mode, d Defaults) (*Interpreter, error) {
	found := present(def, "python", "python-module", "script")
	if len(found) > 1 {
		return nil, invalid(def, found[1], fmt.Sprintf("multiple interpreter keys: %s", strings.Join(found, ", ")))
	}
	if len(found) == 0 {
		return nil, invalid(def, "script", "interpreter step needs one of python, python-module or script")
	}
	if sh := present(def, shellKeys...); len(sh) > 0 {
		return nil, invalid(def, sh[0], fmt.Sprintf("%s is not valid for an interpreter step", sh[0]))
	}

	raw, _ := def.Get(found[0])
	script := strings.TrimSpace(params.Str(raw))

	var module bool
	switch found[0] {
	case "python":
		module = mode == ModePythonModule
	case "python-module":
		module = true
	default:
		module = mode == ModePythonModule ||
			strings.HasPrefix(script, "-m") ||
			(mode == ModeAuto && !strings.HasSuffix(script, ".py") && !strings.ContainsAny(script, `/\`))
	}
	if module && strings.HasPrefix(script, "-m") {
		script = strings.TrimSpace(script[2:])
	}
	if script == "" {
		return nil, invalid(def, found[0], fmt.Sprintf("%s is empty", found[0]))
	}

	in := &Interpreter{
		Script:      script,
		Module:      module,
		Interpreter: d.Interpreter,
	}
	if in.Interpreter == "" {
		in.Interpreter = DefaultInterpreter
	}
	if v, ok := def.Get("python-interpreter"); ok && v != nil {
		in.Interpreter = params.Str(v)
		in.customInterpreter = true
	}
	if v, ok := def.Get("python-args"); ok {
		in.Args = v
	}
	return in, nil
}

func parseShell(def *params.Map, d Defaults) (*Shell, error) {
	found := present(def, "shell", "command", "script")
	if len(found) > 1 {
		return nil, invalid(def, found[1], fmt.Sprintf("multiple shell keys: %s", strings.Join(found, ", ")))
	}
	if len(found) == 0 {
		return nil, invalid(def, "command", "shell step needs one of shell, command or script")
	}
	if py := present(def, interpreterKeys...); len(py) > 0 {
		return nil, invalid(def, py[0], fmt.Sprintf("%s is not valid for a shell step", py[0]))
	}

	raw, _ := def.Get(found[0])
	command := strings.TrimSpace(params.Str(raw))
	if command == "" {
		return nil, invalid(def, found[0], fmt.Sprintf("%s is empty", found[0]))
	}

	sh := &Shell{
		Command:   command,
		Runtime:   d.ShellRuntime,
		Program:   d.Shell,
		ShellArgs: d.ShellArgs,
	}
	if sh.Runtime == "" {
		sh.Runtime = ShellNative
	}
	if v, ok := def.Get("shell-runtime"); ok && v != nil {
		sh.Runtime = ShellRuntime(params.Str(v))
	}
	if ok, errs := sh.Runtime.IsValid(); !ok {
		return nil, invalid(def, "shell-runtime", errs[0].Error())
	}
	if v, ok := def.Get("shell-args"); ok {
		sh.Args = v
	}
	return sh, nil
}

// variant keeps a failed parse from becoming a non-nil Executor holding a nil
// pointer.
func variant[T Executor](e T, err error) (Executor, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func present(def *params.Map, keys ...string) []string {
	var out []string
	for _, k := range keys {
		if def.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// looksLikeModule matches dotted module names such as "pkg.train". A bare
// word like "make" is not enough.
func looksLikeModule(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	return !slices.ContainsFunc(parts, func(p string) bool { return !isIdentifier(p) })
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func invalid(def *params.Map, key, reason string) error {
	return &project.DefinitionError{Kind: "step", Key: key, Reason: reason, Definition: def}
}
