package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/infra/pgutils"
	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/repos/items"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

type SaleOutcome struct {
	SaleID          uuid.UUID `json:"sale_id"`
	ItemID          int64     `json:"item_id"`
	Quantity        int       `json:"quantity"`
	TotalMinor      int64     `json:"total_minor"`
	NewPriceMinor   int64     `json:"new_price_minor"`
	RemainingStock  int       `json:"remaining_stock"`
	BuyerBalance    int64     `json:"buyer_balance_minor"`
	MerchantBalance int64     `json:"merchant_balance_minor"`
}

// RecordSale settles a point-of-sale purchase: stock and the buyer→merchant
// transfer move in one transaction, then the pricing engine reacts to the
// sale. A pricing failure is logged and the sale stands; price movement is a
// side effect of a sale, never a precondition.
func (s *Service) RecordSale(ctx context.Context, itemID, buyer int64, quantity int) (SaleOutcome, error) {
	if quantity <= 0 {
		return SaleOutcome{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	saleID := uuid.New()

	type saleState struct {
		item      items.Item
		committed ledger.CommitResult
	}

	state, err := pgutils.WithTxValue(ctx, s.deps.DB, func(tx *sql.Tx) (saleState, error) {
		item, err := s.deps.Items.LockAndGet(tx, itemID)
		if err != nil {
			return saleState{}, fmt.Errorf("load item: %w", err)
		}

		if item.MerchantID == buyer {
			return saleState{}, fmt.Errorf("%w: merchant cannot buy own item", ErrInvalidInput)
		}

		if err := s.deps.Items.DecrementStock(tx, itemID, quantity); err != nil {
			return saleState{}, err
		}

		total := item.PriceMinor * int64(quantity)

		committed, err := s.deps.Ledger.CommitTx(tx, ledger.Batch{
			CausalRef: &saleID,
			Specs: []ledger.TransferSpec{
				{SourceID: &buyer, DestID: &item.MerchantID, AmountMinor: total, Kind: entries.KindPurchase},
			},
		})
		if err != nil {
			return saleState{}, err
		}

		return saleState{item: item, committed: committed}, nil
	})
	if err != nil {
		return SaleOutcome{}, err
	}

	newPrice := state.item.PriceMinor

	adjusted, perr := s.deps.Pricing.RecordSale(ctx, itemID, quantity, state.item.PriceMinor)
	if perr != nil {
		slog.Warn("price adjustment failed after committed sale",
			"sale_id", saleID, "item_id", itemID, "quantity", quantity, "error", perr)
	} else {
		newPrice = adjusted
	}

	return SaleOutcome{
		SaleID:          saleID,
		ItemID:          itemID,
		Quantity:        quantity,
		TotalMinor:      state.item.PriceMinor * int64(quantity),
		NewPriceMinor:   newPrice,
		RemainingStock:  state.item.Stock - quantity,
		BuyerBalance:    state.committed.Balances[buyer],
		MerchantBalance: state.committed.Balances[state.item.MerchantID],
	}, nil
}

// ItemPrice reads an item's listed price with idle decay applied.
func (s *Service) ItemPrice(ctx context.Context, itemID int64) (int64, error) {
	return s.deps.Pricing.CurrentPrice(ctx, itemID)
}
