//go:build !windows

package dev

import "syscall"

// Terminate signals a child process tree. The graceful signal is SIGINT,
// the forced one SIGKILL.
//
// Children are spawned as process group leaders, so the group (negative PID)
// is signalled first. A failed group kill is an expected path, not an
// exceptional one: the child may have changed its group, in which case the
// PID is signalled directly.
func Terminate(pid int, force bool) error {
	sig := syscall.SIGINT
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	return syscall.Kill(pid, sig)
}
