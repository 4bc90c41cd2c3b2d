//go:build linux || darwin

package daemon

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setDaemonSysProcAttr puts the background `aura start` child in its own
// session so closing the launching terminal does not stop the store.
func setDaemonSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// processExists probes the pid from daemon.pid with signal 0. EPERM means
// the daemon is alive under another user.
func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// signalTerm cancels the daemon's serve context: the scheduler stops, a
// running scenario is aborted and the store is closed before exit.
func signalTerm(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
