// Package dilemma scores the two-player Prisoner's Dilemma.
package dilemma

import (
	"errors"
	"fmt"
)

type Choice string

const (
	Cooperate Choice = "cooperate"
	Defect    Choice = "defect"
)

var ErrInvalidChoice = errors.New("invalid choice")

func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case Cooperate, Defect:
		return Choice(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

// Config is the payoff matrix in minor units, in the game's classic naming:
// mutual cooperation pays Reward to each, mutual defection costs Punishment,
// and a lone defector takes Temptation while the cooperator eats Sucker.
type Config struct {
	RewardMinor     int64 `toml:"reward_minor"`
	TemptationMinor int64 `toml:"temptation_minor"`
	SuckerMinor     int64 `toml:"sucker_minor"`
	PunishmentMinor int64 `toml:"punishment_minor"`
}

func DefaultConfig() Config {
	return Config{
		RewardMinor:     500,
		TemptationMinor: 1500,
		SuckerMinor:     -1000,
		PunishmentMinor: -500,
	}
}

// Payoff returns the signed deltas for the two participants given their
// choices, first slot first.
func (c Config) Payoff(a, b Choice) (int64, int64) {
	switch {
	case a == Cooperate && b == Cooperate:
		return c.RewardMinor, c.RewardMinor
	case a == Cooperate && b == Defect:
		return c.SuckerMinor, c.TemptationMinor
	case a == Defect && b == Cooperate:
		return c.TemptationMinor, c.SuckerMinor
	default:
		return c.PunishmentMinor, c.PunishmentMinor
	}
}
