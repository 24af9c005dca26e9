// Package mayaboot implements the drag-and-drop installer bootstrap for a
// Maya module as a testable Go library.
//
// Inside Maya, installation starts when a user drags install.mel onto the
// viewport: the script finds its own directory, puts <dir>/scripts on the
// embedded Python interpreter's module search path, imports the external
// installer module, and calls its install entry point with the directory.
// mayaboot reproduces that sequence with every piece of interpreter state
// behind an explicit collaborator, so the same logic runs against a fake
// interpreter in tests, a live Python subprocess in CI, or any future host
// binding.
//
// # Bootstrap Sequence
//
// Run performs the whole sequence against a Host:
//
//	env, err := mayaboot.DiscoverEnvironment()
//	bridge, err := mayaboot.NewBridge(env, mayaboot.BridgeOptions{})
//	defer bridge.Close()
//
//	host := &mayaboot.StaticHost{Script: "/opt/tools/installer/install.mel", Interp: bridge}
//	base, err := mayaboot.Run(host, mayaboot.DefaultOptions())
//
// The base path resolution prefers Host.ScriptPath. When a host can only
// report the MEL `whatIs` diagnostic, ParseWhatIs extracts the path from the
// fixed "Mel procedure found in: <path>" form and rejects anything else
// instead of slicing at a fixed offset.
//
// # Interpreter Bridge
//
// Bridge is the production Interpreter implementation. It runs a Python
// subprocess with an embedded bridge script and exchanges length-prefixed
// frames over the process pipes. The payload codec is negotiated at startup:
// MessagePack when the interpreter can import msgpack, JSON otherwise, so a
// stock mayapy works without any extra packages. Python-side faults arrive
// as structured PythonError values carrying the exception class, message,
// and traceback.
//
// # Search Path Invariant
//
// EnsureSearchPath prepends the scripts directory only when it is absent,
// so dragging the installer any number of times within one host session
// leaves exactly one search path entry. Module state works the other way:
// with AlwaysReload set (the default), an installer module already present
// in the interpreter's module cache is reloaded after import, using
// importlib.reload on Python 3 and the reload builtin on Python 2, so each
// drop runs the code currently on disk rather than a stale cached copy. A
// first import in a fresh interpreter is left alone.
package mayaboot
