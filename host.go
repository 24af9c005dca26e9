package mayaboot

import "fmt"

// Interpreter is the embedded scripting interpreter reachable from the host
// application. It exposes the three host services the bootstrap needs:
// executing statements, evaluating expressions, and access to the module
// search path.
//
// The search path and module cache are interpreter-wide mutable state. The
// bootstrap only ever mutates them through this interface, so tests can
// substitute an in-memory implementation instead of touching a real process.
type Interpreter interface {
	// Exec executes a statement in the interpreter. Faults raised by the
	// statement are returned as errors (a *PythonError when the fault
	// originated in Python code).
	Exec(stmt string) error

	// Eval evaluates an expression and returns its value rendered as a string.
	Eval(expr string) (string, error)

	// SearchPath returns the current module search path, in resolution order.
	SearchPath() ([]string, error)

	// PrependSearchPath inserts dir at the front of the module search path.
	// Callers are responsible for duplicate checks; use EnsureSearchPath for
	// the idempotent form.
	PrependSearchPath(dir string) error

	// HasModule reports whether a module of the given name is present in the
	// interpreter's module cache. A cached installer module carries state
	// from an earlier run and is the case the reload policy exists for.
	HasModule(name string) (bool, error)

	// Version returns the interpreter version. The major component gates the
	// module reload mechanism.
	Version() Version
}

// Host represents the application the installer script was dropped onto.
// It owns the embedded interpreter and can resolve the location of the
// script being executed.
type Host interface {
	// ScriptPath returns the absolute filesystem path of the currently
	// executing script file. Implementations that cannot resolve it directly
	// may return an empty string with a nil error; the bootstrap then falls
	// back to parsing the WhatIs diagnostic.
	ScriptPath() (string, error)

	// WhatIs returns the host's diagnostic description for a named procedure,
	// e.g. "Mel procedure found in: /tmp/proj/install.mel".
	WhatIs(proc string) (string, error)

	// Interpreter returns the host's embedded interpreter.
	Interpreter() Interpreter
}

// StaticHost is a Host with a known script location, wrapping an existing
// interpreter. It is the host used when the bootstrap runs outside a live
// Maya session (e.g. from the mayaboot CLI against a module root on disk).
type StaticHost struct {
	// Script is the absolute path of the install script file.
	Script string

	// Interp is the interpreter the bootstrap should drive.
	Interp Interpreter
}

// ScriptPath returns the configured script location.
func (h *StaticHost) ScriptPath() (string, error) {
	return h.Script, nil
}

// WhatIs reproduces the host diagnostic format for the configured script.
func (h *StaticHost) WhatIs(proc string) (string, error) {
	return fmt.Sprintf("%s%s", whatIsPrefix, h.Script), nil
}

// Interpreter returns the wrapped interpreter.
func (h *StaticHost) Interpreter() Interpreter {
	return h.Interp
}
