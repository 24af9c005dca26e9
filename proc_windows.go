//go:build windows

package mayaboot

import "os/exec"

// setProcAttr is a no-op on Windows; there is no process group to create.
func setProcAttr(cmd *exec.Cmd) {}

// terminate force-stops the interpreter process.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
