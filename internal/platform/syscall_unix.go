//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly
// +build linux darwin freebsd netbsd openbsd dragonfly

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// SyscallUnmounter detaches mount points with umount(2).
type SyscallUnmounter struct{}

func (SyscallUnmounter) Unmount(target string) error {
	return unix.Unmount(target, 0)
}

// OpenExclusive opens a block device node for writing with O_EXCL. On Linux
// the kernel refuses the open while the device or any of its partitions is
// mounted or otherwise claimed.
func OpenExclusive(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_EXCL|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
