package exec

import (
	"context"
	"errors"
	"os"
	"os/exec" //nolint:depguard

	"github.com/kballard/go-shellquote"

	"github.com/bkper/bkper-cli/internal/log"
)

type Cmd struct {
	*exec.Cmd
	level log.Level
}

func LookPath(exe string) (string, error) {
	path, err := exec.LookPath(exe)
	return path, err
}

func Command(ctx context.Context, level log.Level, dir, exe string, args ...string) *Cmd {
	return CommandWithEnv(ctx, level, dir, []string{}, exe, args...)
}

// CommandWithEnv creates a command with the given environment variables
// appended to the current environment.
//
// The child is started in its own process group so that it and any processes
// it spawns can be signalled as a tree.
func CommandWithEnv(ctx context.Context, level log.Level, dir string, env []string, exe string, args ...string) *Cmd {
	logger := log.FromContext(ctx)
	logger.Tracef("exec: cd %s && %s %s", shellquote.Join(dir), exe, shellquote.Join(args...))
	cmd := exec.CommandContext(ctx, exe, args...)
	// The caller's stop sequence owns termination. Left at its default,
	// Cancel would SIGKILL the child the moment the context is cancelled,
	// before any graceful signal could reach it.
	cmd.Cancel = nil
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, env...)
	cmd.SysProcAttr = groupAttr()
	cmd.Dir = dir
	output := logger.WriterAt(level)
	cmd.Stdout = output
	cmd.Stderr = output
	return &Cmd{cmd, level}
}

// RunStderrError runs the command and captures the output. If the command fails, the stderr is returned as the error message.
func (c *Cmd) RunStderrError(ctx context.Context) error {
	errorBuffer := NewCircularBuffer(100)

	c.Cmd.Stdout = nil
	c.Cmd.Stderr = errorBuffer.WriterAt(ctx, c.level)

	if err := c.Run(); err != nil {
		return errors.New(string(errorBuffer.Bytes()))
	}

	return nil
}
