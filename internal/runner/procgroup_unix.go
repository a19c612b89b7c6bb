//go:build unix

package runner

import (
	stderrors "errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the build in its own process group and makes
// cancellation kill the whole group, so tools spawned by the build command
// do not outlive a timeout.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if stderrors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
