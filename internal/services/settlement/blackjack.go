package settlement

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/games/blackjack"
	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

type BlackjackOutcome struct {
	HandID           uuid.UUID        `json:"hand_id"`
	Hand             blackjack.Result `json:"hand"`
	PlayerDeltaMinor int64            `json:"player_delta_minor"`
	NewBalanceMinor  int64            `json:"new_balance_minor"`
}

// PlayBlackjack settles one automatic hand through the same single-batch
// commit as a spin.
func (s *Service) PlayBlackjack(ctx context.Context, account int64, wagerMinor int64) (BlackjackOutcome, error) {
	balance, err := s.deps.Accounts.GetBalance(ctx, account)
	if err != nil {
		return BlackjackOutcome{}, fmt.Errorf("read balance: %w", err)
	}
	if wagerMinor > balance {
		return BlackjackOutcome{}, fmt.Errorf("wager %d over balance %d: %w", wagerMinor, balance, ledger.ErrInsufficientFunds)
	}

	var hand blackjack.Result

	err = s.withRand(func(rng *rand.Rand) error {
		var err error
		hand, err = s.deps.Blackjack.Play(wagerMinor, rng)
		return err
	})
	if err != nil {
		return BlackjackOutcome{}, err
	}

	payout := s.deps.Damper.Scale(games.Blackjack, hand.PayoutMinor)
	hand.PayoutMinor = payout

	handID := uuid.New()
	specs := []ledger.TransferSpec{
		{SourceID: &account, DestID: &s.cfg.HouseAccountID, AmountMinor: wagerMinor, Kind: entries.KindWager},
	}
	if payout > 0 {
		specs = append(specs, ledger.TransferSpec{
			SourceID: &s.cfg.HouseAccountID, DestID: &account, AmountMinor: payout, Kind: entries.KindGamePayout,
		})
	}

	committed, err := s.deps.Ledger.Commit(ctx, ledger.Batch{CausalRef: &handID, Specs: specs})
	if err != nil {
		return BlackjackOutcome{}, fmt.Errorf("commit hand: %w", err)
	}

	return BlackjackOutcome{
		HandID:           handID,
		Hand:             hand,
		PlayerDeltaMinor: payout - wagerMinor,
		NewBalanceMinor:  committed.Balances[account],
	}, nil
}
