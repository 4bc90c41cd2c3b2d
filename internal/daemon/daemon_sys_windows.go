//go:build windows

package daemon

import (
	"os"
	"os/exec"
)

func setDaemonSysProcAttr(cmd *exec.Cmd) {
	// No Setsid on Windows.
}

func processExists(pid int) bool {
	// No kill(pid, 0) on Windows; a stale pid file is caught by the lock on next start.
	return pid > 0
}

func signalTerm(proc *os.Process) error {
	return proc.Kill()
}
