package settlement

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/games/slots"
	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

// SpinOutcome is the settled spin the presentation layer renders: the
// realized grid, every winning line as evaluated, and the net result.
type SpinOutcome struct {
	SpinID           uuid.UUID       `json:"spin_id"`
	Machine          string          `json:"machine"`
	Reels            [][]string      `json:"reels"`
	Wins             []slots.LineWin `json:"wins"`
	TotalPayoutMinor int64           `json:"total_payout_minor"`
	PlayerDeltaMinor int64           `json:"player_delta_minor"`
	NewBalanceMinor  int64           `json:"new_balance_minor"`
}

// Spin plays one wagered spin. The wager is checked pessimistically against
// the current balance, then re-verified by the ledger's guarded debit inside
// the commit; wager and payout land in one atomic batch.
func (s *Service) Spin(ctx context.Context, account int64, machineKey string, wagerMinor int64) (SpinOutcome, error) {
	machine, err := s.deps.Slots.Get(machineKey)
	if err != nil {
		return SpinOutcome{}, err
	}

	balance, err := s.deps.Accounts.GetBalance(ctx, account)
	if err != nil {
		return SpinOutcome{}, fmt.Errorf("read balance: %w", err)
	}
	if wagerMinor > balance {
		return SpinOutcome{}, fmt.Errorf("wager %d over balance %d: %w", wagerMinor, balance, ledger.ErrInsufficientFunds)
	}

	var result slots.SpinResult

	err = s.withRand(func(rng *rand.Rand) error {
		var err error
		result, err = machine.Spin(wagerMinor, rng)
		return err
	})
	if err != nil {
		return SpinOutcome{}, err
	}

	// One multiplier snapshot across the whole spin keeps the win list
	// summing to the payout the player receives.
	linePayouts := make([]int64, len(result.Wins))
	for i, win := range result.Wins {
		linePayouts[i] = win.PayoutMinor
	}

	var payout int64
	for i, scaled := range s.deps.Damper.ScaleAll(games.Slots, linePayouts) {
		result.Wins[i].PayoutMinor = scaled
		payout += scaled
	}

	spinID := uuid.New()
	specs := []ledger.TransferSpec{
		{SourceID: &account, DestID: &s.cfg.HouseAccountID, AmountMinor: wagerMinor, Kind: entries.KindWager},
	}
	if payout > 0 {
		specs = append(specs, ledger.TransferSpec{
			SourceID: &s.cfg.HouseAccountID, DestID: &account, AmountMinor: payout, Kind: entries.KindGamePayout,
		})
	}

	committed, err := s.deps.Ledger.Commit(ctx, ledger.Batch{CausalRef: &spinID, Specs: specs})
	if err != nil {
		return SpinOutcome{}, fmt.Errorf("commit spin: %w", err)
	}

	return SpinOutcome{
		SpinID:           spinID,
		Machine:          machine.Key,
		Reels:            result.Reels,
		Wins:             result.Wins,
		TotalPayoutMinor: payout,
		PlayerDeltaMinor: payout - wagerMinor,
		NewBalanceMinor:  committed.Balances[account],
	}, nil
}
