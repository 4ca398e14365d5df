package entries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSettlement signals that an entry with the same causal reference
// and shape was already committed; a retried settlement hit the prior commit.
var ErrDuplicateSettlement = errors.New("duplicate settlement")

// Kind classifies a ledger entry for reporting and idempotency scoping.
type Kind string

const (
	KindGamePayout Kind = "game_payout"
	KindWager      Kind = "wager"
	KindTransfer   Kind = "transfer"
	KindPurchase   Kind = "purchase"
	KindMint       Kind = "mint"
	KindBurn       Kind = "burn"
)

// Entry is one immutable credit movement. Source or destination may be nil
// only for mint/burn kinds, where the missing side is explicit system
// issuance rather than an inferred counterparty.
type Entry struct {
	ID          int64
	SourceID    *int64
	DestID      *int64
	AmountMinor int64
	Kind        Kind
	CausalRef   *uuid.UUID
	CreatedAt   time.Time
}

type Entries interface {
	Insert(tx *sql.Tx, e Entry) (int64, error)
	ListByCausalRef(ctx context.Context, ref uuid.UUID) ([]Entry, error)
}
