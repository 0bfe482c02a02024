package main

import (
	"context"

	"github.com/bkper/bkper-cli/internal/auth"
	"github.com/bkper/bkper-cli/internal/log"
)

type logoutCmd struct{}

func (l *logoutCmd) Run(ctx context.Context, store *auth.Store) error {
	if err := store.Clear(); err != nil {
		return err
	}
	log.FromContext(ctx).Infof("Logged out.")
	return nil
}
