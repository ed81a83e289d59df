//go:build unix

package filelock

import (
	"fmt"
	"os"
	"syscall"
)

// flockLock implements locker with a kernel flock(2) exclusive lock.
// Grounded in kernel bookkeeping: the lock dies with the process, so a
// crashed holder cannot wedge the store.
type flockLock struct {
	path string
	file *os.File
}

// newPlatformLock returns the flock backend on Unix hosts.
func newPlatformLock(path string) locker {
	return &flockLock{path: path}
}

func (fl *flockLock) tryLock() (bool, error) {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	fl.file = f
	return true, nil
}

func (fl *flockLock) unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
