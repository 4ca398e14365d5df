// Package blackjack plays an automatic dealer-style hand: both sides draw
// from an infinite shoe and stand at the configured threshold, so one request
// resolves the whole hand.
package blackjack

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
)

var ErrInvalidWager = errors.New("invalid wager")

var ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

type Config struct {
	MinWagerMinor int64 `toml:"min_wager_minor"`
	MaxWagerMinor int64 `toml:"max_wager_minor"`

	// StandAt is the total both sides draw up to before standing.
	StandAt int `toml:"stand_at"`

	// NaturalPremium scales the wager's winnings on a two-card 21, the
	// classic 3:2 being 1.5.
	NaturalPremium float64 `toml:"natural_premium"`
}

func DefaultConfig() Config {
	return Config{
		MinWagerMinor:  100,
		MaxWagerMinor:  50000,
		StandAt:        17,
		NaturalPremium: 1.5,
	}
}

const (
	OutcomeBlackjack = "blackjack"
	OutcomeWin       = "win"
	OutcomePush      = "push"
	OutcomeLose      = "lose"
	OutcomeBust      = "bust"
)

// Result is one finished hand. PayoutMinor is the amount returned to the
// player including the stake; net delta = payout - wager.
type Result struct {
	PlayerCards []string `json:"player_cards"`
	DealerCards []string `json:"dealer_cards"`
	PlayerTotal int      `json:"player_total"`
	DealerTotal int      `json:"dealer_total"`
	Outcome     string   `json:"outcome"`
	PayoutMinor int64    `json:"payout_minor"`
}

// Play draws and scores one hand. Deterministic under a fixed rand source.
func (c Config) Play(wagerMinor int64, rng *rand.Rand) (Result, error) {
	if wagerMinor <= 0 {
		return Result{}, fmt.Errorf("%w: must be positive", ErrInvalidWager)
	}
	if wagerMinor < c.MinWagerMinor || wagerMinor > c.MaxWagerMinor {
		return Result{}, fmt.Errorf("%w: outside [%d, %d]", ErrInvalidWager, c.MinWagerMinor, c.MaxWagerMinor)
	}

	player := []string{draw(rng), draw(rng)}
	dealer := []string{draw(rng), draw(rng)}

	playerTotal := handTotal(player)
	natural := playerTotal == 21

	if !natural {
		for handTotal(player) < c.StandAt {
			player = append(player, draw(rng))
		}
		playerTotal = handTotal(player)
	}

	dealerTotal := handTotal(dealer)
	if playerTotal <= 21 {
		for dealerTotal < c.StandAt {
			dealer = append(dealer, draw(rng))
			dealerTotal = handTotal(dealer)
		}
	}

	res := Result{
		PlayerCards: player,
		DealerCards: dealer,
		PlayerTotal: playerTotal,
		DealerTotal: dealerTotal,
	}

	switch {
	case natural && dealerTotal == 21 && len(dealer) == 2:
		res.Outcome = OutcomePush
		res.PayoutMinor = wagerMinor
	case natural:
		res.Outcome = OutcomeBlackjack
		premium := decimal.NewFromInt(wagerMinor).Mul(decimal.NewFromFloat(c.NaturalPremium)).Round(0).IntPart()
		res.PayoutMinor = wagerMinor + premium
	case playerTotal > 21:
		res.Outcome = OutcomeBust
	case dealerTotal > 21 || playerTotal > dealerTotal:
		res.Outcome = OutcomeWin
		res.PayoutMinor = wagerMinor * 2
	case playerTotal == dealerTotal:
		res.Outcome = OutcomePush
		res.PayoutMinor = wagerMinor
	default:
		res.Outcome = OutcomeLose
	}

	return res, nil
}

func draw(rng *rand.Rand) string {
	return ranks[rng.Intn(len(ranks))]
}

// handTotal values aces at 11, devaluing them to 1 one at a time while the
// hand busts.
func handTotal(hand []string) int {
	total, aces := 0, 0

	for _, rank := range hand {
		switch rank {
		case "A":
			total += 11
			aces++
		case "J", "Q", "K", "10":
			total += 10
		default:
			total += int(rank[0] - '0')
		}
	}

	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}

	return total
}
