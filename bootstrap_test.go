package mayaboot

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter records statements, keeps the search path in memory, and
// models the module cache by remembering successful imports.
type fakeInterpreter struct {
	paths   []string
	execs   []string
	modules map[string]bool
	ver     Version
	execErr map[string]error
}

func newFakeInterpreter(major, minor int) *fakeInterpreter {
	return &fakeInterpreter{
		paths:   []string{"/usr/lib/python"},
		modules: map[string]bool{},
		ver:     Version{Major: major, Minor: minor, Patch: 0},
		execErr: map[string]error{},
	}
}

func (f *fakeInterpreter) Exec(stmt string) error {
	f.execs = append(f.execs, stmt)
	if err, ok := f.execErr[stmt]; ok {
		return err
	}
	if rest, ok := strings.CutPrefix(stmt, "import "); ok {
		name := strings.Fields(rest)[0]
		f.modules[strings.TrimSuffix(name, ";")] = true
	}
	return nil
}

func (f *fakeInterpreter) Eval(expr string) (string, error) {
	return "", nil
}

func (f *fakeInterpreter) SearchPath() ([]string, error) {
	return append([]string(nil), f.paths...), nil
}

func (f *fakeInterpreter) PrependSearchPath(dir string) error {
	f.paths = append([]string{dir}, f.paths...)
	return nil
}

func (f *fakeInterpreter) HasModule(name string) (bool, error) {
	return f.modules[name], nil
}

func (f *fakeInterpreter) Version() Version {
	return f.ver
}

// countExecs returns how many recorded statements contain substr.
func (f *fakeInterpreter) countExecs(substr string) int {
	n := 0
	for _, stmt := range f.execs {
		if strings.Contains(stmt, substr) {
			n++
		}
	}
	return n
}

// fakeHost returns a fixed script path and diagnostic.
type fakeHost struct {
	script string
	diag   string
	interp *fakeInterpreter
}

func (f *fakeHost) ScriptPath() (string, error) { return f.script, nil }

func (f *fakeHost) WhatIs(proc string) (string, error) { return f.diag, nil }

func (f *fakeHost) Interpreter() Interpreter { return f.interp }

func TestParseWhatIs(t *testing.T) {
	path, err := ParseWhatIs("Mel procedure found in: /tmp/proj/install.mel")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/proj/install.mel", path)

	for _, diag := range []string{
		"",
		"Mel procedure found in: ",
		"Unknown procedure: installModule",
		"mel procedure found in: /tmp/proj/install.mel",
	} {
		_, err := ParseWhatIs(diag)
		assert.Error(t, err, "diagnostic %q should not parse", diag)
	}
}

func TestBaseDir(t *testing.T) {
	assert.Equal(t, "/tmp/proj/", BaseDir("/tmp/proj/install.mel"))
	assert.Equal(t, `C:\tools\proj\`, BaseDir(`C:\tools\proj\install.mel`))
	assert.Equal(t, "", BaseDir("install.mel"))
}

func TestScriptsDir(t *testing.T) {
	assert.Equal(t, "/home/user/scripts/installer/scripts/",
		ScriptsDir("/home/user/scripts/installer/", "scripts"))
	assert.Equal(t, "/tmp/proj/scripts/", ScriptsDir("/tmp/proj", "scripts"))
	assert.Equal(t, `C:\tools\proj\scripts\`, ScriptsDir(`C:\tools\proj\`, "scripts"))
}

func TestEnsureSearchPathIdempotent(t *testing.T) {
	interp := newFakeInterpreter(3, 10)

	for i := 0; i < 5; i++ {
		inserted, err := EnsureSearchPath(interp, "/tmp/proj/scripts/")
		require.NoError(t, err)
		assert.Equal(t, i == 0, inserted, "iteration %d", i)
	}

	count := 0
	for _, p := range interp.paths {
		if p == "/tmp/proj/scripts/" {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one search path occurrence")
	assert.Equal(t, "/tmp/proj/scripts/", interp.paths[0], "entry is prepended")
}

func TestRunEndToEnd(t *testing.T) {
	interp := newFakeInterpreter(3, 10)
	host := &fakeHost{
		// No direct path resolution: force the whatIs fallback.
		diag:   "Mel procedure found in: /tmp/proj/install.mel",
		interp: interp,
	}

	base, err := Run(host, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/proj/", base)
	assert.Equal(t, "/tmp/proj/scripts/", interp.paths[0])
	assert.Equal(t, 1, interp.countExecs("setup.install("))
	assert.Contains(t, interp.execs, "setup.install('/tmp/proj/')")
}

func TestRunPrefersScriptPath(t *testing.T) {
	interp := newFakeInterpreter(3, 10)
	host := &fakeHost{
		script: "/opt/tools/installer/install.mel",
		diag:   "Unknown procedure: installModule",
		interp: interp,
	}

	base, err := Run(host, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "/opt/tools/installer/", base)
}

func TestRunImportFailurePreventsInstall(t *testing.T) {
	interp := newFakeInterpreter(3, 10)
	interp.execErr["import setup"] = errors.New("ImportError: No module named setup")
	host := &fakeHost{
		diag:   "Mel procedure found in: /tmp/proj/install.mel",
		interp: interp,
	}

	_, err := Run(host, DefaultOptions())
	require.Error(t, err)
	assert.Zero(t, interp.countExecs(".install("), "install must not be called on import failure")
}

func TestReloadGating(t *testing.T) {
	t.Run("python3 uses importlib", func(t *testing.T) {
		interp := newFakeInterpreter(3, 7)
		interp.modules["setup"] = true
		host := &fakeHost{diag: "Mel procedure found in: /tmp/proj/install.mel", interp: interp}

		_, err := Run(host, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, interp.countExecs("importlib.reload(setup)"))
	})

	t.Run("python2 uses the reload builtin", func(t *testing.T) {
		interp := newFakeInterpreter(2, 7)
		interp.modules["setup"] = true
		host := &fakeHost{diag: "Mel procedure found in: /tmp/proj/install.mel", interp: interp}

		_, err := Run(host, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 0, interp.countExecs("importlib"))
		assert.Equal(t, 1, interp.countExecs("reload(setup)"))
	})

	t.Run("first import is not reloaded", func(t *testing.T) {
		interp := newFakeInterpreter(3, 10)
		host := &fakeHost{diag: "Mel procedure found in: /tmp/proj/install.mel", interp: interp}

		_, err := Run(host, DefaultOptions())
		require.NoError(t, err)
		assert.Zero(t, interp.countExecs("reload"), "fresh import carries no stale state")
	})

	t.Run("reload disabled", func(t *testing.T) {
		interp := newFakeInterpreter(3, 10)
		interp.modules["setup"] = true
		host := &fakeHost{diag: "Mel procedure found in: /tmp/proj/install.mel", interp: interp}

		opts := DefaultOptions()
		opts.AlwaysReload = false
		_, err := Run(host, opts)
		require.NoError(t, err)
		assert.Zero(t, interp.countExecs("reload"))
	})
}

func TestRunRepeatedInvocations(t *testing.T) {
	interp := newFakeInterpreter(3, 10)
	host := &fakeHost{diag: "Mel procedure found in: /tmp/proj/install.mel", interp: interp}

	for i := 0; i < 3; i++ {
		_, err := Run(host, DefaultOptions())
		require.NoError(t, err)
	}

	count := 0
	for _, p := range interp.paths {
		if p == "/tmp/proj/scripts/" {
			count++
		}
	}
	assert.Equal(t, 1, count, "search path insertion stays idempotent")
	assert.Equal(t, 3, interp.countExecs("setup.install("), "install runs every invocation")
	assert.Equal(t, 2, interp.countExecs("importlib.reload(setup)"),
		"module reloads on every invocation after the first")
}

func TestRunCustomModule(t *testing.T) {
	interp := newFakeInterpreter(3, 10)
	host := &fakeHost{diag: "Mel procedure found in: /tmp/proj/install.mel", interp: interp}

	opts := DefaultOptions()
	opts.Module = "coopSetup"
	_, err := Run(host, opts)
	require.NoError(t, err)
	assert.Contains(t, interp.execs, "import coopSetup")
	assert.Contains(t, interp.execs, "coopSetup.install('/tmp/proj/')")
}

func TestPyQuote(t *testing.T) {
	assert.Equal(t, "'/tmp/proj/'", pyQuote("/tmp/proj/"))
	assert.Equal(t, `'C:\\tools\\proj\\'`, pyQuote(`C:\tools\proj\`))
	assert.Equal(t, `'it\'s here'`, pyQuote("it's here"))
}

func TestStaticHostDiagnostic(t *testing.T) {
	host := &StaticHost{Script: "/tmp/proj/install.mel"}
	diag, err := host.WhatIs("installModule")
	require.NoError(t, err)

	path, err := ParseWhatIs(diag)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/proj/install.mel", path)
}
