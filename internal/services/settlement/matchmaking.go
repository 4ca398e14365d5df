package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/games/dilemma"
	"github.com/dmetrik/gamehall/internal/matchmaking"
	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

type JoinOutcome struct {
	RoundID uuid.UUID          `json:"round_id"`
	Status  matchmaking.Status `json:"status"`
}

type ChoiceOutcome struct {
	RoundID         uuid.UUID          `json:"round_id"`
	Status          matchmaking.Status `json:"status"`
	DeltaMinor      *int64             `json:"delta_minor,omitempty"`
	NewBalanceMinor *int64             `json:"new_balance_minor,omitempty"`
}

type RoundStatus struct {
	RoundID      uuid.UUID          `json:"round_id"`
	Status       matchmaking.Status `json:"status"`
	Participants []int64            `json:"participants"`
	Submitted    []int64            `json:"submitted"`
	DeltaMinor   *int64             `json:"delta_minor,omitempty"`
}

// JoinMatchmaking reserves a Prisoner's Dilemma slot for the account.
func (s *Service) JoinMatchmaking(ctx context.Context, account int64) (JoinOutcome, error) {
	if _, err := s.deps.Accounts.GetBalance(ctx, account); err != nil {
		return JoinOutcome{}, fmt.Errorf("verify account: %w", err)
	}

	res, err := s.deps.Pool.Join(account)
	if err != nil {
		return JoinOutcome{}, err
	}

	return JoinOutcome{RoundID: res.RoundID, Status: res.Status}, nil
}

// SubmitChoice records a participant's choice. The submission that completes
// the pair resolves the round: both outcomes are looked up in the payoff
// matrix and committed as one atomic batch, so a crash can never apply half
// a resolution.
func (s *Service) SubmitChoice(ctx context.Context, roundID uuid.UUID, account int64, choice dilemma.Choice) (ChoiceOutcome, error) {
	res, err := s.deps.Pool.SubmitChoice(roundID, account, choice)
	if err != nil {
		return ChoiceOutcome{}, err
	}

	out := ChoiceOutcome{RoundID: roundID, Status: res.Status}

	if res.Resolution == nil {
		return out, nil
	}

	committed, err := s.resolveDilemma(ctx, *res.Resolution)
	if err != nil {
		// The round is resolved in the pool but its payouts are not recorded;
		// log the reconciliation case instead of unwinding the resolution.
		slog.Warn("dilemma resolution commit failed",
			"round_id", roundID, "accounts", res.Resolution.Accounts, "error", err)

		return ChoiceOutcome{}, fmt.Errorf("commit resolution: %w", err)
	}

	delta := committed.Delta(account)
	balance := committed.Balances[account]
	out.DeltaMinor = &delta
	out.NewBalanceMinor = &balance

	return out, nil
}

// AwaitMatch blocks until the round gains its second participant, leaves the
// pool, or the wait elapses, then reports the round the same way Round does.
func (s *Service) AwaitMatch(ctx context.Context, roundID uuid.UUID, account int64, wait time.Duration) (RoundStatus, error) {
	_, err := s.deps.Pool.WaitMatched(ctx, roundID, wait)
	if err != nil && !errors.Is(err, matchmaking.ErrRoundNotFound) {
		return RoundStatus{}, err
	}

	// A round missing from the pool may already be resolved; Round reads the
	// ledger record in that case.
	return s.Round(ctx, roundID, account)
}

// Round reports a matchmaking round's state; for a resolved round the
// caller's recorded delta is read back from the ledger entries keyed by the
// round id, so pollers see exactly what was committed.
func (s *Service) Round(ctx context.Context, roundID uuid.UUID, account int64) (RoundStatus, error) {
	view, err := s.deps.Pool.View(roundID)
	if err != nil && !errors.Is(err, matchmaking.ErrRoundNotFound) {
		return RoundStatus{}, err
	}

	if err == nil {
		return RoundStatus{
			RoundID:      view.RoundID,
			Status:       view.Status,
			Participants: view.Participants,
			Submitted:    view.Submitted,
		}, nil
	}

	// Resolved rounds leave the pool; their ledger entries are the record.
	recorded, lerr := s.deps.Entries.ListByCausalRef(ctx, roundID)
	if lerr != nil {
		return RoundStatus{}, fmt.Errorf("look up round entries: %w", lerr)
	}
	if len(recorded) == 0 {
		return RoundStatus{}, matchmaking.ErrRoundNotFound
	}

	var delta int64
	participants := map[int64]struct{}{}
	for _, e := range recorded {
		if e.SourceID != nil && *e.SourceID != s.cfg.HouseAccountID {
			participants[*e.SourceID] = struct{}{}
		}
		if e.DestID != nil && *e.DestID != s.cfg.HouseAccountID {
			participants[*e.DestID] = struct{}{}
		}
		if e.SourceID != nil && *e.SourceID == account {
			delta -= e.AmountMinor
		}
		if e.DestID != nil && *e.DestID == account {
			delta += e.AmountMinor
		}
	}

	status := RoundStatus{RoundID: roundID, Status: matchmaking.StatusResolved, DeltaMinor: &delta}
	for id := range participants {
		status.Participants = append(status.Participants, id)
		status.Submitted = append(status.Submitted, id)
	}

	return status, nil
}

// resolveDilemma turns a completed choice pair into one ledger batch: gains
// arrive from the house, losses return to it. Losses are clamped to the
// loser's balance so a resolved round always settles; the house absorbs any
// shortfall.
func (s *Service) resolveDilemma(ctx context.Context, r matchmaking.Resolution) (ledger.CommitResult, error) {
	payA, payB := s.deps.Dilemma.Payoff(r.Choices[0], r.Choices[1])

	deltas := [2]int64{payA, payB}

	var specs []ledger.TransferSpec

	for i, raw := range deltas {
		switch {
		case raw > 0:
			amount := s.deps.Damper.Scale(games.Dilemma, raw)
			specs = append(specs, ledger.TransferSpec{
				SourceID:    &s.cfg.HouseAccountID,
				DestID:      &r.Accounts[i],
				AmountMinor: amount,
				Kind:        entries.KindGamePayout,
			})
		case raw < 0:
			specs = append(specs, ledger.TransferSpec{
				SourceID:       &r.Accounts[i],
				DestID:         &s.cfg.HouseAccountID,
				AmountMinor:    -raw,
				Kind:           entries.KindWager,
				ClampToBalance: true,
			})
		}
	}

	ref := r.RoundID

	return s.deps.Ledger.Commit(ctx, ledger.Batch{CausalRef: &ref, Specs: specs})
}
