// Package ledger implements the append-only ledger: every balance mutation
// in the system goes through one atomic batch commit here.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/infra/pgutils"
	"github.com/dmetrik/gamehall/internal/repos/accounts"
	"github.com/dmetrik/gamehall/internal/repos/entries"
)

var (
	ErrInsufficientFunds   = accounts.ErrInsufficientFunds
	ErrDuplicateSettlement = entries.ErrDuplicateSettlement
	ErrInvalidSpec         = errors.New("invalid transfer spec")
	ErrEmptyBatch          = errors.New("empty batch")
)

// TransferSpec names one movement of value. Source and destination are both
// set for transfers; exactly one side is nil for mint/burn kinds, where the
// missing side is explicit system issuance.
type TransferSpec struct {
	SourceID    *int64
	DestID      *int64
	AmountMinor int64
	Kind        entries.Kind

	// ClampToBalance trims the debit to whatever the source can cover instead
	// of failing the batch. Used when a resolved round must settle even if a
	// loser cannot pay the full penalty; the counterparty absorbs the
	// shortfall by receiving less.
	ClampToBalance bool
}

// Batch is committed all-or-nothing. The causal reference ties the entries to
// the token or round that produced them and dedupes retried commits.
type Batch struct {
	CausalRef *uuid.UUID
	Specs     []TransferSpec
}

// AppliedSpec reports a spec after clamping. A fully clamped-away debit has
// AmountMinor zero and no ledger entry.
type AppliedSpec struct {
	Spec        TransferSpec
	AmountMinor int64
	EntryID     int64
}

type CommitResult struct {
	Applied  []AppliedSpec
	Balances map[int64]int64
}

// Delta returns the committed net change for one account.
func (r CommitResult) Delta(accountID int64) int64 {
	var delta int64

	for _, a := range r.Applied {
		if a.Spec.SourceID != nil && *a.Spec.SourceID == accountID {
			delta -= a.AmountMinor
		}
		if a.Spec.DestID != nil && *a.Spec.DestID == accountID {
			delta += a.AmountMinor
		}
	}

	return delta
}

type Service struct {
	db       *sql.DB
	accounts accounts.Accounts
	entries  entries.Entries
}

func New(db *sql.DB, accountsRepo accounts.Accounts, entriesRepo entries.Entries) *Service {
	return &Service{db: db, accounts: accountsRepo, entries: entriesRepo}
}

// Commit applies the batch inside its own transaction.
func (s *Service) Commit(ctx context.Context, batch Batch) (CommitResult, error) {
	return pgutils.WithTxValue(ctx, s.db, func(tx *sql.Tx) (CommitResult, error) {
		return s.CommitTx(tx, batch)
	})
}

// CommitTx applies the batch inside a caller-owned transaction, so a sale can
// move stock and credits in one atomic step. Account rows are locked in
// ascending id order before any balance is read or written: batches touching
// disjoint accounts run in parallel, overlapping batches serialize, and the
// fixed ordering rules out deadlock.
func (s *Service) CommitTx(tx *sql.Tx, batch Batch) (CommitResult, error) {
	if err := validate(batch); err != nil {
		return CommitResult{}, err
	}

	balances, err := s.accounts.LockAndGetBalances(tx, touchedAccounts(batch))
	if err != nil {
		return CommitResult{}, fmt.Errorf("lock accounts: %w", err)
	}

	result := CommitResult{Balances: balances}

	for _, spec := range batch.Specs {
		amount := spec.AmountMinor

		if spec.SourceID != nil {
			available := balances[*spec.SourceID]
			if amount > available {
				if !spec.ClampToBalance {
					return CommitResult{}, fmt.Errorf("account %d short %d: %w",
						*spec.SourceID, amount-available, ErrInsufficientFunds)
				}

				amount = available
			}
		}

		applied := AppliedSpec{Spec: spec, AmountMinor: amount}

		if amount > 0 {
			if spec.SourceID != nil {
				if err := s.accounts.DecreaseBalance(tx, *spec.SourceID, amount); err != nil {
					return CommitResult{}, fmt.Errorf("debit account %d: %w", *spec.SourceID, err)
				}
				balances[*spec.SourceID] -= amount
			}

			if spec.DestID != nil {
				if err := s.accounts.IncreaseBalance(tx, *spec.DestID, amount); err != nil {
					return CommitResult{}, fmt.Errorf("credit account %d: %w", *spec.DestID, err)
				}
				balances[*spec.DestID] += amount
			}

			entryID, err := s.entries.Insert(tx, entries.Entry{
				SourceID:    spec.SourceID,
				DestID:      spec.DestID,
				AmountMinor: amount,
				Kind:        spec.Kind,
				CausalRef:   batch.CausalRef,
			})
			if err != nil {
				return CommitResult{}, fmt.Errorf("record entry: %w", err)
			}

			applied.EntryID = entryID
		}

		result.Applied = append(result.Applied, applied)
	}

	return result, nil
}

func validate(batch Batch) error {
	if len(batch.Specs) == 0 {
		return ErrEmptyBatch
	}

	for i, spec := range batch.Specs {
		if spec.AmountMinor <= 0 {
			return fmt.Errorf("spec %d: amount %d must be positive: %w", i, spec.AmountMinor, ErrInvalidSpec)
		}

		switch {
		case spec.SourceID == nil && spec.DestID == nil:
			return fmt.Errorf("spec %d: no accounts named: %w", i, ErrInvalidSpec)
		case spec.SourceID == nil && spec.Kind != entries.KindMint:
			return fmt.Errorf("spec %d: missing source outside a mint: %w", i, ErrInvalidSpec)
		case spec.DestID == nil && spec.Kind != entries.KindBurn:
			return fmt.Errorf("spec %d: missing destination outside a burn: %w", i, ErrInvalidSpec)
		case spec.SourceID != nil && spec.DestID != nil && *spec.SourceID == *spec.DestID:
			return fmt.Errorf("spec %d: self transfer: %w", i, ErrInvalidSpec)
		}
	}

	return nil
}

func touchedAccounts(batch Batch) []int64 {
	seen := make(map[int64]struct{}, len(batch.Specs)*2)
	var ids []int64

	add := func(id *int64) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}

	for _, spec := range batch.Specs {
		add(spec.SourceID)
		add(spec.DestID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
