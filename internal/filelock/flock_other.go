//go:build !unix

package filelock

// newPlatformLock falls back to the portable directory mutex on hosts
// without flock(2).
func newPlatformLock(path string) locker {
	return newDirLock(path)
}
