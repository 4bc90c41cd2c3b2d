//go:build windows

package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// daemonLock is <home>/protected/daemon.lock created exclusively. Windows has
// no flock, so the file's existence is the lock and release removes it.
type daemonLock struct {
	f    *os.File
	path string
}

func acquireLock(lockFile string) (*daemonLock, error) {
	if err := os.MkdirAll(filepath.Dir(lockFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, lockHeldError(lockFile)
		}
		return nil, fmt.Errorf("lock %s: %w", lockFile, err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	return &daemonLock{f: f, path: lockFile}, nil
}

func (l *daemonLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = l.f.Close()
	_ = os.Remove(l.path)
	l.f = nil
}
