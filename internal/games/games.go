// Package games defines the minigame kinds the engine settles and the shared
// vocabulary between token issuance, resolvers, and settlement.
package games

import (
	"errors"
	"fmt"
)

// Kind tags a minigame variant. Resolvers are dispatched by kind and every
// round token records the kind it was issued for.
type Kind string

const (
	Reaction     Kind = "reaction"
	SwipeCard    Kind = "swipe_card"
	PrimeShields Kind = "prime_shields"
	AlignEngine  Kind = "align_engine"
	TimedMath    Kind = "timed_math"
	Dilemma      Kind = "dilemma"
	Slots        Kind = "slots"
	Blackjack    Kind = "blackjack"
)

var (
	ErrUnknownKind       = errors.New("unknown game kind")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrTooEarly          = errors.New("too early")
	ErrPrecisionNotMet   = errors.New("precision not met")
)

// ParseKind validates a client-supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Reaction, SwipeCard, PrimeShields, AlignEngine, TimedMath, Dilemma, Slots, Blackjack:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// TokenIssued reports whether rounds of this kind start with an issued token.
// Slots and blackjack settle per wagered play, the dilemma goes through
// matchmaking; the task games are the token-bounded ones.
func (k Kind) TokenIssued() bool {
	switch k {
	case Reaction, SwipeCard, PrimeShields, AlignEngine, TimedMath:
		return true
	default:
		return false
	}
}

// RoundParams are fixed at token issuance and embedded in the token so a
// client cannot claim an easier target than it was shown. Only the fields
// relevant to the round's kind are set.
type RoundParams struct {
	BaseRewardMinor int64 `json:"base_reward_minor,omitempty"`

	// reaction
	MinElapsedMS int64 `json:"min_elapsed_ms,omitempty"`
	MaxElapsedMS int64 `json:"max_elapsed_ms,omitempty"`

	// swipe_card: ideal swipe duration and accepted deviation
	IdealMS     int64 `json:"ideal_ms,omitempty"`
	ToleranceMS int64 `json:"tolerance_ms,omitempty"`

	// align_engine
	Target    float64 `json:"target,omitempty"`
	Precision float64 `json:"precision,omitempty"`

	// timed_math
	OperandA    int64 `json:"operand_a,omitempty"`
	OperandB    int64 `json:"operand_b,omitempty"`
	TimeLimitMS int64 `json:"time_limit_ms,omitempty"`
}

// Submission is the player's measurement for a single-player round. Which
// fields matter depends on the round's kind.
type Submission struct {
	ElapsedMS  int64   `json:"elapsed_ms,omitempty"`
	DurationMS int64   `json:"duration_ms,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Answer     int64   `json:"answer,omitempty"`
}

// Outcome is a resolver's verdict: the payout owed to the player (zero on a
// miss) and a category label for presentation.
type Outcome struct {
	PayoutMinor int64
	Category    string
}
