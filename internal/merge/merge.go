// Package merge implements deterministic merging of two duplicate
// transactions: one survives with the union of both records' data, the other
// is trashed after contributing what the survivor lacked.
package merge

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bkper/bkper-cli/internal/bkper"
)

// ErrAmountMismatch is returned when both transactions carry amounts that are
// not numerically equal. There is no override; mismatched amounts are never
// merged.
var ErrAmountMismatch = errors.New("amount mismatch")

// Result of a merge. Edit is a copy of the surviving transaction with the
// merged fields applied; Revert is the original record to be trashed.
// Neither input is mutated.
type Result struct {
	Edit   *bkper.Transaction
	Revert *bkper.Transaction
}

var descriptionSeparators = regexp.MustCompile(`[\s\-_]+`)

// Merge deterministically chooses a survivor between a and b and merges
// fields. A posted transaction always survives over a draft; between two of
// the same state the later-created one survives.
func Merge(a, b *bkper.Transaction) (Result, error) {
	edit, revert := chooseSurvivor(a, b)

	merged := *edit
	merged.Description = mergeDescriptions(edit.Description, revert.Description)

	// Attachments concatenate; order preserved, duplicates allowed.
	merged.Files = append(append([]bkper.File{}, edit.Files...), revert.Files...)

	merged.RemoteIds = unionStrings(edit.RemoteIds, revert.RemoteIds)
	merged.Urls = unionStrings(edit.Urls, revert.Urls)

	merged.Properties = mergeProperties(edit.Properties, revert.Properties)

	if merged.CreditAccount == nil {
		merged.CreditAccount = revert.CreditAccount
	}
	if merged.DebitAccount == nil {
		merged.DebitAccount = revert.DebitAccount
	}

	amount, err := mergeAmounts(edit.Amount, revert.Amount)
	if err != nil {
		return Result{}, err
	}
	merged.Amount = amount

	return Result{Edit: &merged, Revert: revert}, nil
}

func chooseSurvivor(a, b *bkper.Transaction) (edit, revert *bkper.Transaction) {
	if a.Posted != b.Posted {
		if a.Posted {
			return a, b
		}
		return b, a
	}
	if b.CreatedAt > a.CreatedAt {
		return b, a
	}
	return a, b
}

// mergeDescriptions starts from the survivor's description and appends each
// token of the other description not already present, case-insensitively.
func mergeDescriptions(editDesc, revertDesc string) string {
	merged := strings.Join(strings.Fields(editDesc), " ")
	for _, token := range descriptionSeparators.Split(revertDesc, -1) {
		if token == "" {
			continue
		}
		if strings.Contains(strings.ToLower(merged), strings.ToLower(token)) {
			continue
		}
		if merged == "" {
			merged = token
		} else {
			merged += " " + token
		}
	}
	return merged
}

func unionStrings(first, second []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, value := range append(append([]string{}, first...), second...) {
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

// mergeProperties shallow-merges, with the discarded record's values winning
// on key collision.
func mergeProperties(editProps, revertProps map[string]string) map[string]string {
	if editProps == nil && revertProps == nil {
		return nil
	}
	merged := map[string]string{}
	for key, value := range editProps {
		merged[key] = value
	}
	for key, value := range revertProps {
		merged[key] = value
	}
	return merged
}

func mergeAmounts(editAmount, revertAmount string) (string, error) {
	if editAmount == "" {
		return revertAmount, nil
	}
	if revertAmount == "" {
		return editAmount, nil
	}
	editDecimal, err := decimal.NewFromString(editAmount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", editAmount, err)
	}
	revertDecimal, err := decimal.NewFromString(revertAmount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", revertAmount, err)
	}
	if !editDecimal.Equal(revertDecimal) {
		return "", fmt.Errorf("%w: %s != %s", ErrAmountMismatch, editAmount, revertAmount)
	}
	return editAmount, nil
}
