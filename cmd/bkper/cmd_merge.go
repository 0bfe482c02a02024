package main

import (
	"context"
	"fmt"

	"github.com/bkper/bkper-cli/internal/auth"
	"github.com/bkper/bkper-cli/internal/bkper"
	"github.com/bkper/bkper-cli/internal/log"
	"github.com/bkper/bkper-cli/internal/merge"
)

type transactionCmd struct {
	Merge mergeCmd `cmd:"" help:"Merge two transactions in a book."`
}

type mergeCmd struct {
	Book string   `short:"b" required:"" help:"Book id the transactions belong to."`
	Ids  []string `arg:"" help:"Ids of the two transactions to merge."`
}

func (m *mergeCmd) Run(ctx context.Context, authorizer *auth.Authorizer, client *bkper.Client) error {
	if !authorizer.LoggedIn() {
		return fmt.Errorf("not logged in, run \"bkper login\" first")
	}
	if len(m.Ids) != 2 {
		return fmt.Errorf("expected exactly two transaction ids, got %d", len(m.Ids))
	}
	result, err := merge.Apply(ctx, client, m.Book, m.Ids[0], m.Ids[1])
	if err != nil {
		return err
	}
	log.FromContext(ctx).Infof("Merged %s into %s", result.Revert.Id, result.Edit.Id)
	return nil
}
