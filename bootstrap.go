package mayaboot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// whatIsPrefix is the fixed prefix of the host's `whatIs` diagnostic for a
// sourced MEL procedure. The path of the script file follows the prefix.
const whatIsPrefix = "Mel procedure found in: "

// Options configures a bootstrap run.
type Options struct {
	// Module is the name of the installer module to import from the scripts
	// directory. Defaults to "setup".
	Module string

	// ScriptsSubdir is the subdirectory of the script's base path that is
	// ensured on the interpreter's module search path. Defaults to "scripts".
	ScriptsSubdir string

	// Procedure is the procedure name passed to Host.WhatIs when the host
	// cannot resolve the script path directly. Defaults to "installModule".
	Procedure string

	// AlwaysReload forces a reload of the installer module on every run, so
	// edits to it take effect without restarting the host. The reload
	// mechanism is selected by interpreter major version: importlib.reload
	// on Python 3, the reload builtin on Python 2.
	AlwaysReload bool

	// Logger receives progress events. Defaults to a disabled logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the options matching the drag-and-drop installer's
// behavior: module "setup", subdirectory "scripts", reload on every run.
func DefaultOptions() Options {
	return Options{
		Module:        "setup",
		ScriptsSubdir: "scripts",
		Procedure:     "installModule",
		AlwaysReload:  true,
		Logger:        zerolog.Nop(),
	}
}

// Run performs the full bootstrap sequence against the host:
//
//  1. Resolve the base directory containing the install script.
//  2. Ensure <base>/<scripts subdir>/ is on the interpreter's module search
//     path (prepended once, never duplicated).
//  3. Import the installer module, reloading it if AlwaysReload is set.
//  4. Invoke <module>.install(<base>).
//
// Run returns the resolved base path. Any fault raised by the installer
// module propagates as the returned error; there is no local recovery. If
// the import fails, install is never invoked.
func Run(host Host, opts Options) (string, error) {
	if opts.Module == "" {
		opts.Module = "setup"
	}
	if opts.ScriptsSubdir == "" {
		opts.ScriptsSubdir = "scripts"
	}
	if opts.Procedure == "" {
		opts.Procedure = "installModule"
	}

	base, err := resolveBasePath(host, opts.Procedure)
	if err != nil {
		return "", err
	}
	opts.Logger.Debug().Str("base", base).Msg("resolved script base path")

	interp := host.Interpreter()
	scriptsDir := ScriptsDir(base, opts.ScriptsSubdir)
	inserted, err := EnsureSearchPath(interp, scriptsDir)
	if err != nil {
		return "", err
	}
	opts.Logger.Debug().Str("dir", scriptsDir).Bool("inserted", inserted).Msg("ensured search path entry")

	if err := loadInstaller(interp, opts); err != nil {
		return "", err
	}

	if err := interp.Exec(fmt.Sprintf("%s.install(%s)", opts.Module, pyQuote(base))); err != nil {
		return "", fmt.Errorf("error running %s.install: %w", opts.Module, err)
	}
	opts.Logger.Info().Str("base", base).Str("module", opts.Module).Msg("installer invoked")

	return base, nil
}

// resolveBasePath determines the directory containing the install script.
// The host's own path resolution is preferred; the whatIs diagnostic is only
// parsed when the host cannot supply the path directly.
func resolveBasePath(host Host, proc string) (string, error) {
	script, err := host.ScriptPath()
	if err != nil || script == "" {
		diag, derr := host.WhatIs(proc)
		if derr != nil {
			return "", fmt.Errorf("error querying host for script location: %v", derr)
		}
		script, err = ParseWhatIs(diag)
		if err != nil {
			return "", err
		}
	}
	base := BaseDir(script)
	if base == "" {
		return "", fmt.Errorf("script path %q has no directory component", script)
	}
	return base, nil
}

// ParseWhatIs extracts the script file path from a `whatIs` diagnostic of the
// form "Mel procedure found in: <path>". The prefix is matched explicitly;
// any other diagnostic (an unknown procedure, a changed host message format)
// is an error rather than a silently corrupted path.
func ParseWhatIs(diag string) (string, error) {
	path, ok := strings.CutPrefix(diag, whatIsPrefix)
	if !ok || path == "" {
		return "", fmt.Errorf("unexpected whatIs diagnostic: %q", diag)
	}
	return path, nil
}

// BaseDir strips the trailing filename component from a script path,
// returning the containing directory with its trailing separator preserved:
// "/tmp/proj/install.mel" -> "/tmp/proj/". Returns "" if the path has no
// separator.
func BaseDir(scriptPath string) string {
	idx := strings.LastIndexAny(scriptPath, "/\\")
	if idx < 0 {
		return ""
	}
	return scriptPath[:idx+1]
}

// ScriptsDir derives the scripts subdirectory from a base path, keeping the
// base path's separator style: "/home/user/installer/" ->
// "/home/user/installer/scripts/".
func ScriptsDir(base, subdir string) string {
	sep := "/"
	if strings.Contains(base, "\\") && !strings.Contains(base, "/") {
		sep = "\\"
	}
	if base != "" && !strings.HasSuffix(base, "/") && !strings.HasSuffix(base, "\\") {
		base += sep
	}
	return base + subdir + sep
}

// EnsureSearchPath prepends dir to the interpreter's module search path if
// it is not already present. The check makes repeated bootstrap runs within
// one interpreter session idempotent with respect to the search path.
// Returns whether an insertion took place.
func EnsureSearchPath(interp Interpreter, dir string) (bool, error) {
	paths, err := interp.SearchPath()
	if err != nil {
		return false, fmt.Errorf("error reading module search path: %v", err)
	}
	for _, p := range paths {
		if p == dir {
			return false, nil
		}
	}
	if err := interp.PrependSearchPath(dir); err != nil {
		return false, fmt.Errorf("error prepending %s to module search path: %v", dir, err)
	}
	return true, nil
}

// loadInstaller imports the installer module and, when AlwaysReload is set
// and an earlier import left the module in the interpreter's cache, discards
// that stale in-memory state by reloading it. A first import in a fresh
// interpreter is already current and is not reloaded.
func loadInstaller(interp Interpreter, opts Options) error {
	cached, err := interp.HasModule(opts.Module)
	if err != nil {
		return fmt.Errorf("error checking module cache for %s: %v", opts.Module, err)
	}
	if err := interp.Exec("import " + opts.Module); err != nil {
		return fmt.Errorf("error importing installer module %s: %w", opts.Module, err)
	}
	if !opts.AlwaysReload || !cached {
		return nil
	}
	ver := interp.Version()
	var stmt string
	if ver.Major >= 3 {
		stmt = fmt.Sprintf("import importlib; importlib.reload(%s)", opts.Module)
	} else {
		// Python 2 keeps reload as a builtin.
		stmt = fmt.Sprintf("reload(%s)", opts.Module)
	}
	if err := interp.Exec(stmt); err != nil {
		return fmt.Errorf("error reloading installer module %s: %w", opts.Module, err)
	}
	return nil
}

// pyQuote renders s as a single-quoted Python string literal.
func pyQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
