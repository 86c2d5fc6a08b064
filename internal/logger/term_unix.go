//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd || aix || solaris

package logger

import "golang.org/x/sys/unix"

func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), ioctlReadTermios)
	return err == nil
}
