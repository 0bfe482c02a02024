package dev

import (
	"context"
	"sync"
	"time"

	"github.com/bkper/bkper-cli/internal/log"
)

// coalescerState is the three-state machine that collapses bursts of file
// change triggers into serialized action runs.
type coalescerState int

const (
	// No action in flight.
	coalescerIdle coalescerState = iota
	// An action is running; a new trigger moves to runningPending.
	coalescerRunning
	// An action is running and exactly one more run is owed when it ends.
	coalescerRunningPending
)

// Coalescer serializes a rebuild/redeploy action per watched tree: at most
// one run in flight, at most one run pending, any number of triggers during
// a run collapse into that single pending run.
//
// Action errors are logged and do not stop the machine from returning to
// idle or honoring a pending rerun.
type Coalescer struct {
	name       string
	rerunDelay time.Duration
	action     func(ctx context.Context) error

	mu    sync.Mutex
	state coalescerState
	// idle is closed and replaced each time the machine returns to idle,
	// letting tests and shutdown wait for quiescence.
	idle chan struct{}
}

const defaultRerunDelay = time.Millisecond * 100

func NewCoalescer(name string, action func(ctx context.Context) error) *Coalescer {
	idle := make(chan struct{})
	close(idle)
	return &Coalescer{
		name:       name,
		rerunDelay: defaultRerunDelay,
		action:     action,
		idle:       idle,
	}
}

// Trigger requests a run. It never blocks: if a run is already in flight the
// request collapses into the single pending rerun.
func (c *Coalescer) Trigger(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case coalescerIdle:
		c.state = coalescerRunning
		c.idle = make(chan struct{})
		go c.run(ctx)
	case coalescerRunning:
		c.state = coalescerRunningPending
	case coalescerRunningPending:
		// Already owed a rerun; further triggers coalesce into it.
	}
}

func (c *Coalescer) run(ctx context.Context) {
	logger := log.FromContext(ctx).Scope(c.name)
	for {
		if err := c.action(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf(err, "%s failed", c.name)
		}

		c.mu.Lock()
		if c.state != coalescerRunningPending || ctx.Err() != nil {
			c.state = coalescerIdle
			close(c.idle)
			c.mu.Unlock()
			return
		}
		c.state = coalescerRunning
		c.mu.Unlock()

		// Brief pause before the owed rerun so a trailing burst of saves
		// lands in it.
		select {
		case <-time.After(c.rerunDelay):
		case <-ctx.Done():
			c.mu.Lock()
			c.state = coalescerIdle
			close(c.idle)
			c.mu.Unlock()
			return
		}
	}
}

// Wait blocks until the machine is idle or the context is done.
func (c *Coalescer) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
