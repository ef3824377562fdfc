//go:build windows

package runner

import (
	"os"
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; process trees are terminated with
// taskkill instead of group signals.
func setProcessGroup(cmd *exec.Cmd) {
}

// interruptProcessGroup has no SIGINT analogue for a detached console
// process, so it terminates the tree directly.
func interruptProcessGroup(p *os.Process) error {
	return killProcessGroup(p)
}

// killProcessGroup terminates the child and its descendants.
func killProcessGroup(p *os.Process) error {
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(p.Pid)).Run()
}
