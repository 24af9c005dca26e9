package mayaboot

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Environment describes a Python installation capable of hosting the
// installer module, typically Maya's bundled interpreter (mayapy) or a
// system Python when no Maya installation is available.
type Environment struct {
	// Name identifies how the environment was found ("mayapy" or "system").
	Name string

	// PythonPath is the full path to the Python executable.
	PythonPath string

	// PythonVersion is the detected interpreter version.
	PythonVersion Version
}

// EnvironmentFromExecutable builds an Environment from an existing Python
// executable by querying it for its version.
func EnvironmentFromExecutable(name, pythonPath string) (*Environment, error) {
	// CombinedOutput because Python 2 prints its version to stderr.
	out, err := exec.Command(pythonPath, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("error running %s --version: %v", pythonPath, err)
	}
	version, err := ParsePythonVersion(string(out))
	if err != nil {
		return nil, fmt.Errorf("error parsing Python version: %v", err)
	}
	return &Environment{
		Name:          name,
		PythonPath:    pythonPath,
		PythonVersion: version,
	}, nil
}

// DiscoverEnvironment locates a Python interpreter to host the installer
// module. It prefers mayapy (Maya's bundled interpreter) and falls back to
// the system Python.
//
// On Unix systems, it searches the PATH for "mayapy", "python3", then
// "python". On Windows, it additionally filters out the Microsoft Store
// placeholder executables that shadow a real Python installation.
func DiscoverEnvironment() (*Environment, error) {
	if p, err := lookupExecutable("mayapy"); err == nil {
		return EnvironmentFromExecutable("mayapy", p)
	}
	for _, candidate := range []string{"python3", "python"} {
		if p, err := lookupExecutable(candidate); err == nil {
			return EnvironmentFromExecutable("system", p)
		}
	}
	return nil, fmt.Errorf("no Python interpreter found on PATH")
}

// lookupExecutable resolves name on the PATH. On Windows, results under the
// WindowsApps directory are placeholders, not runnable interpreters.
func lookupExecutable(name string) (string, error) {
	if runtime.GOOS != "windows" {
		return exec.LookPath(name)
	}
	out, err := exec.Command("where", name).Output()
	if err != nil {
		return "", fmt.Errorf("error running 'where %s': %v", name, err)
	}
	for _, p := range strings.Split(string(out), "\n") {
		p = strings.TrimSpace(p)
		if p == "" || strings.Contains(p, "Microsoft\\WindowsApps") {
			continue
		}
		return p, nil
	}
	return "", fmt.Errorf("%s not found", name)
}
