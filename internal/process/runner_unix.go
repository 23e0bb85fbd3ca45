//go:build !windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group so a deadline kill
// can reach children it spawns, not just the direct process.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup signals the negative PID, i.e. the whole group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}

// joinProcessGroup is a no-op here: Setpgid above already did the work,
// before the process started rather than after.
func joinProcessGroup(cmd *exec.Cmd) {}
