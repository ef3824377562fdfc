//go:build unix

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so signals reach
// the whole script tree, not just the direct shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// interruptProcessGroup delivers SIGINT to the child's process group.
// Negative PID addresses the entire group.
func interruptProcessGroup(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGINT)
}

// killProcessGroup force-kills the child's process group. Descendants holding
// the output pipes die with it, which unblocks the pipe readers.
func killProcessGroup(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
