//go:build !windows

package executor

import "golang.org/x/sys/unix"

// diskFree returns the number of bytes available to the current user
// on the filesystem holding path.
func diskFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
