package merge

import (
	"context"
	"fmt"

	"github.com/bkper/bkper-cli/internal/bkper"
	"github.com/bkper/bkper-cli/internal/log"
)

// Transactions is the slice of the API client Apply needs.
type Transactions interface {
	GetTransaction(ctx context.Context, bookID, id string) (*bkper.Transaction, error)
	UpdateTransaction(ctx context.Context, bookID string, tx *bkper.Transaction) (*bkper.Transaction, error)
	TrashTransaction(ctx context.Context, bookID, id string) error
}

// Apply fetches both transactions, merges them, persists the merged fields
// onto the survivor and trashes the other. Both records are fetched and the
// merge validated before any mutation, so a not-found or amount mismatch
// leaves the book untouched.
func Apply(ctx context.Context, client Transactions, bookID, idA, idB string) (Result, error) {
	logger := log.FromContext(ctx)

	a, err := client.GetTransaction(ctx, bookID, idA)
	if err != nil {
		return Result{}, err
	}
	b, err := client.GetTransaction(ctx, bookID, idB)
	if err != nil {
		return Result{}, err
	}

	result, err := Merge(a, b)
	if err != nil {
		return Result{}, err
	}

	updated, err := client.UpdateTransaction(ctx, bookID, result.Edit)
	if err != nil {
		return Result{}, fmt.Errorf("could not persist merged transaction: %w", err)
	}
	result.Edit = updated

	if err := client.TrashTransaction(ctx, bookID, result.Revert.Id); err != nil {
		return Result{}, fmt.Errorf("merged %s but could not trash %s: %w", result.Edit.Id, result.Revert.Id, err)
	}

	logger.Infof("Merged %s into %s", result.Revert.Id, result.Edit.Id)
	return result, nil
}
