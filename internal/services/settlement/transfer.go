package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

type TransferOutcome struct {
	TransferID         uuid.UUID `json:"transfer_id"`
	SourceBalanceMinor int64     `json:"source_balance_minor"`
	DestBalanceMinor   int64     `json:"dest_balance_minor"`
}

// Transfer moves credits between two player accounts as a plain two-sided
// ledger batch.
func (s *Service) Transfer(ctx context.Context, from, to, amountMinor int64) (TransferOutcome, error) {
	if amountMinor <= 0 {
		return TransferOutcome{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if from == to {
		return TransferOutcome{}, fmt.Errorf("%w: cannot transfer to self", ErrInvalidInput)
	}

	transferID := uuid.New()

	res, err := s.deps.Ledger.Commit(ctx, ledger.Batch{
		CausalRef: &transferID,
		Specs: []ledger.TransferSpec{
			{SourceID: &from, DestID: &to, AmountMinor: amountMinor, Kind: entries.KindTransfer},
		},
	})
	if err != nil {
		return TransferOutcome{}, fmt.Errorf("commit transfer: %w", err)
	}

	return TransferOutcome{
		TransferID:         transferID,
		SourceBalanceMinor: res.Balances[from],
		DestBalanceMinor:   res.Balances[to],
	}, nil
}

// Balance is a read-only passthrough for the API layer.
func (s *Service) Balance(ctx context.Context, account int64) (int64, error) {
	return s.deps.Accounts.GetBalance(ctx, account)
}
