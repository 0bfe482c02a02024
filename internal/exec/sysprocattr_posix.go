//go:build !windows

package exec

import "syscall"

func groupAttr() *syscall.SysProcAttr {
	// Make the child a process group leader so the whole tree can be
	// signalled with a single negative-PID kill.
	return &syscall.SysProcAttr{Setpgid: true}
}
