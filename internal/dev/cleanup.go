package dev

import (
	"context"
	"time"

	"github.com/bkper/bkper-cli/internal/log"
)

// RunCleanupStep runs one teardown action, bounded by timeout. Failures and
// timeouts are logged and swallowed: shutdown is best effort, and no single
// hung component may stall the rest of the sequence or the CLI exit.
//
// The step runs under a fresh deadline derived from ctx's values but not its
// cancellation, since shutdown begins with the session context already
// cancelled.
func RunCleanupStep(ctx context.Context, label string, timeout time.Duration, action func(ctx context.Context) error) {
	logger := log.FromContext(ctx)
	logger.Debugf("Stopping %s", label)

	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- action(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Warnf("Stopping %s failed: %s", label, err)
			return
		}
		logger.Debugf("Stopped %s", label)
	case <-stepCtx.Done():
		logger.Warnf("Stopping %s timed out after %s", label, timeout)
	}
}
