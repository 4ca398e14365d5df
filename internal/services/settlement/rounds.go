package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/repos/tokens"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

// elapsedSlack pads the wall-clock plausibility check on submitted timings:
// a client cannot have finished faster than the time since the token was
// issued, minus network fuzz.
const elapsedSlack = 2 * time.Second

type IssuedToken struct {
	TokenID   uuid.UUID         `json:"token_id"`
	Game      games.Kind        `json:"game"`
	ExpiresAt time.Time         `json:"expires_at"`
	Params    games.RoundParams `json:"params"`
}

type RoundSettlement struct {
	TokenID         uuid.UUID  `json:"token_id"`
	Game            games.Kind `json:"game"`
	PayoutMinor     int64      `json:"payout_minor"`
	Category        string     `json:"category"`
	DeltaMinor      int64      `json:"delta_minor"`
	NewBalanceMinor int64      `json:"new_balance_minor"`

	// Replayed marks a retried settlement that returned the recorded outcome
	// instead of resolving again.
	Replayed bool `json:"replayed,omitempty"`
}

// IssueRoundToken opens a round of a token-bounded game: it fixes the round's
// parameters server-side and binds them to a fresh single-use token.
func (s *Service) IssueRoundToken(ctx context.Context, account int64, kind games.Kind) (IssuedToken, error) {
	if !kind.TokenIssued() {
		return IssuedToken{}, fmt.Errorf("%w: game %q does not issue round tokens", ErrInvalidInput, kind)
	}

	if _, err := s.deps.Accounts.GetBalance(ctx, account); err != nil {
		return IssuedToken{}, fmt.Errorf("verify account: %w", err)
	}

	var params games.RoundParams

	err := s.withRand(func(rng *rand.Rand) error {
		var err error
		params, err = s.deps.Tasks.IssueParams(kind, rng)
		return err
	})
	if err != nil {
		return IssuedToken{}, fmt.Errorf("issue params: %w", err)
	}

	now := time.Now()
	tok := tokens.Token{
		ID:        uuid.New(),
		AccountID: account,
		Game:      kind,
		Params:    params,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}

	if err := s.deps.Tokens.Insert(ctx, tok); err != nil {
		return IssuedToken{}, fmt.Errorf("store token: %w", err)
	}

	return IssuedToken{TokenID: tok.ID, Game: kind, ExpiresAt: tok.ExpiresAt, Params: params}, nil
}

// SettleRound consumes the token, resolves the submission, and commits the
// payout. Consumption comes first and is never rolled back: a rejection or a
// commit failure after it leaves a consumed token, which is logged rather
// than silently retried.
func (s *Service) SettleRound(ctx context.Context, tokenID uuid.UUID, account int64, sub games.Submission) (RoundSettlement, error) {
	tok, err := s.deps.Tokens.Consume(ctx, tokenID, account)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenAlreadyUsed) {
			return s.replaySettlement(ctx, tokenID, account, sub)
		}

		return RoundSettlement{}, fmt.Errorf("consume token: %w", err)
	}

	return s.settleConsumed(ctx, tok, account, sub)
}

func (s *Service) settleConsumed(ctx context.Context, tok tokens.Token, account int64, sub games.Submission) (RoundSettlement, error) {
	if err := plausibleElapsed(tok, sub); err != nil {
		return RoundSettlement{}, err
	}

	outcome, err := s.deps.Tasks.Resolve(tok.Game, tok.Params, sub)
	if err != nil {
		slog.Info("round rejected after token consumption",
			"token_id", tok.ID, "game", tok.Game, "account", account, "reason", err)

		return RoundSettlement{}, fmt.Errorf("resolve %s round: %w", tok.Game, err)
	}

	payout := s.deps.Damper.Scale(tok.Game, outcome.PayoutMinor)

	settled := RoundSettlement{
		TokenID:     tok.ID,
		Game:        tok.Game,
		PayoutMinor: payout,
		Category:    outcome.Category,
		DeltaMinor:  payout,
	}

	if payout <= 0 {
		balance, err := s.deps.Accounts.GetBalance(ctx, account)
		if err != nil {
			return RoundSettlement{}, fmt.Errorf("read balance: %w", err)
		}

		settled.NewBalanceMinor = balance

		return settled, nil
	}

	ref := tok.ID
	res, err := s.deps.Ledger.Commit(ctx, ledger.Batch{
		CausalRef: &ref,
		Specs: []ledger.TransferSpec{
			{SourceID: &s.cfg.HouseAccountID, DestID: &account, AmountMinor: payout, Kind: entries.KindGamePayout},
		},
	})
	if err != nil {
		// The token is spent but the payout is not recorded; this is a
		// reconciliation case, not a retry inside the engine.
		slog.Warn("settlement commit failed after token consumption",
			"token_id", tok.ID, "game", tok.Game, "account", account, "payout", payout, "error", err)

		return RoundSettlement{}, fmt.Errorf("commit payout: %w", err)
	}

	settled.NewBalanceMinor = res.Balances[account]

	return settled, nil
}

// replaySettlement handles a settlement retry against an already-consumed
// token: if the payout was recorded, the prior outcome is rebuilt and
// returned; if consumption happened but no commit did, the settlement is
// completed now with the resubmitted measurement.
func (s *Service) replaySettlement(ctx context.Context, tokenID uuid.UUID, account int64, sub games.Submission) (RoundSettlement, error) {
	tok, err := s.deps.Tokens.Get(ctx, tokenID)
	if err != nil {
		return RoundSettlement{}, fmt.Errorf("load consumed token: %w", err)
	}

	if tok.AccountID != account {
		return RoundSettlement{}, tokens.ErrTokenAccountMismatch
	}

	recorded, err := s.deps.Entries.ListByCausalRef(ctx, tokenID)
	if err != nil {
		return RoundSettlement{}, fmt.Errorf("look up recorded settlement: %w", err)
	}

	if len(recorded) == 0 {
		// Consumed but never committed: the reconciliation case. Complete the
		// settlement now with the resubmitted measurement.
		slog.Warn("consumed token with no recorded settlement, completing now",
			"token_id", tokenID, "game", tok.Game, "account", account)

		return s.settleConsumed(ctx, tok, account, sub)
	}

	var payout int64
	for _, e := range recorded {
		if e.DestID != nil && *e.DestID == account {
			payout += e.AmountMinor
		}
		if e.SourceID != nil && *e.SourceID == account {
			payout -= e.AmountMinor
		}
	}

	balance, err := s.deps.Accounts.GetBalance(ctx, account)
	if err != nil {
		return RoundSettlement{}, fmt.Errorf("read balance: %w", err)
	}

	category := "settled"
	if out, rerr := s.deps.Tasks.Resolve(tok.Game, tok.Params, sub); rerr == nil {
		category = out.Category
	}

	slog.Info("duplicate settlement attempt, returning recorded outcome",
		"token_id", tokenID, "game", tok.Game, "account", account, "payout", payout)

	return RoundSettlement{
		TokenID:         tokenID,
		Game:            tok.Game,
		PayoutMinor:     payout,
		Category:        category,
		DeltaMinor:      payout,
		NewBalanceMinor: balance,
		Replayed:        true,
	}, nil
}

func plausibleElapsed(tok tokens.Token, sub games.Submission) error {
	budget := time.Since(tok.IssuedAt) + elapsedSlack

	claimed := time.Duration(max64(sub.ElapsedMS, sub.DurationMS)) * time.Millisecond
	if claimed > budget {
		return fmt.Errorf("%w: claimed %s exceeds round age %s", ErrInvalidInput, claimed, budget)
	}

	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
