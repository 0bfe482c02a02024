package dev

import (
	"context"

	"github.com/bkper/bkper-cli/internal/log"
)

// SharedTrigger rebuilds artifacts that depend on the shared package and
// then fans out to the consumers that need restarting. A shared build
// failure is logged and the cascade skipped, leaving the previous
// artifacts serving.
type SharedTrigger struct {
	coalescer *Coalescer
}

// NewSharedTrigger wires a coalesced shared rebuild. build runs first;
// each cascade func runs in order afterwards with its error logged
// individually so one consumer failing does not starve the others.
func NewSharedTrigger(build func(ctx context.Context) error, cascade ...func(ctx context.Context) error) *SharedTrigger {
	action := func(ctx context.Context) error {
		if err := build(ctx); err != nil {
			return err
		}
		logger := log.FromContext(ctx).Scope("shared")
		for _, fn := range cascade {
			if err := fn(ctx); err != nil {
				logger.Errorf(err, "shared rebuild cascade step failed")
			}
		}
		return nil
	}
	return &SharedTrigger{coalescer: NewCoalescer("shared", action)}
}

func (s *SharedTrigger) Trigger(ctx context.Context) {
	s.coalescer.Trigger(ctx)
}

func (s *SharedTrigger) Wait(ctx context.Context) error {
	return s.coalescer.Wait(ctx)
}
