package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
)

func pidPath(home string) string {
	return filepath.Join(config.ProtectedDir(home), "daemon.pid")
}

func lockPath(home string) string {
	return filepath.Join(config.ProtectedDir(home), "daemon.lock")
}

func addrPath(home string) string {
	return filepath.Join(config.ProtectedDir(home), "daemon.addr")
}

// LogPath is where a background daemon writes its log.
func LogPath(home string) string {
	return filepath.Join(config.ProtectedDir(home), "daemon.log")
}

// ErrDaemonRunning means another Aura daemon holds this home's lock.
var ErrDaemonRunning = errors.New("aura is already running for this home")

// lockHeldError names the pid recorded in the lock file when it can be read.
func lockHeldError(lockFile string) error {
	b, err := os.ReadFile(lockFile)
	if pid := strings.TrimSpace(string(b)); err == nil && pid != "" {
		return fmt.Errorf("%w (pid %s)", ErrDaemonRunning, pid)
	}
	return ErrDaemonRunning
}
