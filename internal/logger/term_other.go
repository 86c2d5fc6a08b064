//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd || aix || solaris)

package logger

func isTerminal(uintptr) bool { return false }
