package filelock

import (
	"fmt"
	"os"
)

// dirLock implements locker via atomic directory creation. os.Mkdir either
// creates the directory or fails because it exists; the filesystem makes
// that check-and-create a single atomic operation on every platform.
//
// Unlike flock, a directory survives a crashed holder. The bounded retry
// budget in Manager.Acquire turns that into a loud ErrLockTimeout instead of
// a silent deadlock, which is the desired failure mode for a stuck lock.
type dirLock struct {
	dir  string
	held bool
}

func newDirLock(path string) *dirLock {
	return &dirLock{dir: path + ".lock.d"}
}

func (dl *dirLock) tryLock() (bool, error) {
	err := os.Mkdir(dl.dir, 0755)
	if err == nil {
		dl.held = true
		return true, nil
	}
	if os.IsExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("mkdir lock dir: %w", err)
}

func (dl *dirLock) unlock() error {
	if !dl.held {
		return nil
	}
	dl.held = false
	if err := os.Remove(dl.dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock dir: %w", err)
	}
	return nil
}
