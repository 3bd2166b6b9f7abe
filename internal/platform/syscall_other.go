//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)
// +build !linux,!darwin,!freebsd,!netbsd,!openbsd,!dragonfly

package platform

import (
	"fmt"
	"os"
	"runtime"
)

type SyscallUnmounter struct{}

func (SyscallUnmounter) Unmount(target string) error {
	return fmt.Errorf("unmount not supported on %s", runtime.GOOS)
}

func OpenExclusive(path string) (*os.File, error) {
	return nil, fmt.Errorf("exclusive open not supported on %s", runtime.GOOS)
}
