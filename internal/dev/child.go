package dev

import (
	"context"
	"time"

	"github.com/bkper/bkper-cli/internal/exec"
	"github.com/bkper/bkper-cli/internal/log"
)

const (
	// How long a child gets to exit after the graceful signal.
	stopGracePeriod = time.Second * 2
	// Hard ceiling on the whole stop sequence, forced kill included.
	stopCeiling = time.Second * 3
)

// childProcess owns a long-lived child spawned as a process group leader,
// and knows how to stop it within a bounded time.
type childProcess struct {
	name   string
	cmd    *exec.Cmd
	exited chan struct{}
	// waitErr is valid once exited is closed.
	waitErr error
}

// startChild starts the command and begins reaping it.
func startChild(name string, cmd *exec.Cmd) (*childProcess, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &childProcess{
		name:   name,
		cmd:    cmd,
		exited: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *childProcess) Pid() int {
	return p.cmd.Process.Pid
}

// Stop terminates the child: graceful signal, a grace window for natural
// exit, then forced kill. It always returns within the hard ceiling even if
// the process never observably exits.
func (p *childProcess) Stop(ctx context.Context) error {
	logger := log.FromContext(ctx)
	select {
	case <-p.exited:
		return nil
	default:
	}

	pid := p.Pid()
	if err := Terminate(pid, false); err != nil {
		logger.Debugf("graceful signal to %s (pid %d) failed: %s", p.name, pid, err)
	}
	select {
	case <-p.exited:
		return nil
	case <-time.After(stopGracePeriod):
	}

	logger.Debugf("%s (pid %d) ignored graceful stop, killing", p.name, pid)
	if err := Terminate(pid, true); err != nil {
		logger.Debugf("force kill of %s (pid %d) failed: %s", p.name, pid, err)
	}
	select {
	case <-p.exited:
		return nil
	case <-time.After(stopCeiling - stopGracePeriod):
		logger.Warnf("%s (pid %d) did not exit after kill, giving up", p.name, pid)
		return nil
	}
}
