//go:build windows

package dev

import (
	"os/exec"
	"strconv"
)

// Terminate signals a child process tree via taskkill. /T includes the whole
// tree; /F forces termination.
func Terminate(pid int, force bool) error {
	args := []string{"/PID", strconv.Itoa(pid), "/T"}
	if force {
		args = append(args, "/F")
	}
	return exec.Command("taskkill", args...).Run()
}
