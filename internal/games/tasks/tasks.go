// Package tasks resolves the single-player timing and precision games.
// Resolvers are pure functions of the token's embedded parameters and the
// player's submitted measurement; all randomness happens at issue time.
package tasks

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/dmetrik/gamehall/internal/games"
)

// Band maps a reaction-time ceiling to a fixed payout. Bands are server-owned
// and never embedded in tokens or trusted from the client.
type Band struct {
	Label        string `toml:"label"`
	MaxElapsedMS int64  `toml:"max_elapsed_ms"`
	PayoutMinor  int64  `toml:"payout_minor"`
}

type ReactionConfig struct {
	MinElapsedMS int64  `toml:"min_elapsed_ms"`
	Bands        []Band `toml:"bands"`
}

type SwipeConfig struct {
	BaseRewardMinor int64 `toml:"base_reward_minor"`
	IdealMS         int64 `toml:"ideal_ms"`
	ToleranceMS     int64 `toml:"tolerance_ms"`
}

type ShieldsConfig struct {
	BaseRewardMinor int64 `toml:"base_reward_minor"`
	IdealMS         int64 `toml:"ideal_ms"`
}

type AlignConfig struct {
	BaseRewardMinor int64   `toml:"base_reward_minor"`
	IdealMS         int64   `toml:"ideal_ms"`
	Precision       float64 `toml:"precision"`
}

type MathConfig struct {
	BaseRewardMinor int64   `toml:"base_reward_minor"`
	TimeLimitMS     int64   `toml:"time_limit_ms"`
	MinFactor       float64 `toml:"min_factor"`
	MinRewardMinor  int64   `toml:"min_reward_minor"`
}

type Config struct {
	Reaction ReactionConfig `toml:"reaction"`
	Swipe    SwipeConfig    `toml:"swipe_card"`
	Shields  ShieldsConfig  `toml:"prime_shields"`
	Align    AlignConfig    `toml:"align_engine"`
	Math     MathConfig     `toml:"timed_math"`
}

// DefaultConfig returns the stock task tuning.
func DefaultConfig() Config {
	return Config{
		Reaction: ReactionConfig{
			MinElapsedMS: 120,
			Bands: []Band{
				{Label: "excellent", MaxElapsedMS: 250, PayoutMinor: 500},
				{Label: "good", MaxElapsedMS: 500, PayoutMinor: 300},
				{Label: "slow", MaxElapsedMS: 1000, PayoutMinor: 100},
			},
		},
		Swipe: SwipeConfig{
			BaseRewardMinor: 500,
			IdealMS:         1200,
			ToleranceMS:     600,
		},
		Shields: ShieldsConfig{
			BaseRewardMinor: 500,
			IdealMS:         3500,
		},
		Align: AlignConfig{
			BaseRewardMinor: 500,
			IdealMS:         2500,
			Precision:       3.0,
		},
		Math: MathConfig{
			BaseRewardMinor: 1000,
			TimeLimitMS:     10000,
			MinFactor:       0,
			MinRewardMinor:  0,
		},
	}
}

// Resolver scores submitted rounds against server-owned tuning.
type Resolver struct {
	cfg Config
}

func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// IssueParams fixes the parameters of a new round. Randomized targets are
// drawn here, at issue time, so the client plays against exactly what the
// token records.
func (r *Resolver) IssueParams(kind games.Kind, rng *rand.Rand) (games.RoundParams, error) {
	switch kind {
	case games.Reaction:
		return games.RoundParams{
			MinElapsedMS: r.cfg.Reaction.MinElapsedMS,
			MaxElapsedMS: lastBandCutoff(r.cfg.Reaction.Bands),
		}, nil
	case games.SwipeCard:
		return games.RoundParams{
			BaseRewardMinor: r.cfg.Swipe.BaseRewardMinor,
			IdealMS:         r.cfg.Swipe.IdealMS,
			ToleranceMS:     r.cfg.Swipe.ToleranceMS,
		}, nil
	case games.PrimeShields:
		return games.RoundParams{
			BaseRewardMinor: r.cfg.Shields.BaseRewardMinor,
			IdealMS:         r.cfg.Shields.IdealMS,
		}, nil
	case games.AlignEngine:
		return games.RoundParams{
			BaseRewardMinor: r.cfg.Align.BaseRewardMinor,
			IdealMS:         r.cfg.Align.IdealMS,
			Target:          float64(10 + rng.Intn(81)),
			Precision:       r.cfg.Align.Precision,
		}, nil
	case games.TimedMath:
		return games.RoundParams{
			BaseRewardMinor: r.cfg.Math.BaseRewardMinor,
			OperandA:        int64(10 + rng.Intn(90)),
			OperandB:        int64(10 + rng.Intn(90)),
			TimeLimitMS:     r.cfg.Math.TimeLimitMS,
		}, nil
	default:
		return games.RoundParams{}, fmt.Errorf("%w: %q", games.ErrUnknownKind, kind)
	}
}

// Resolve scores a submission. It performs no I/O and holds no mutable state.
func (r *Resolver) Resolve(kind games.Kind, p games.RoundParams, sub games.Submission) (games.Outcome, error) {
	switch kind {
	case games.Reaction:
		return r.resolveReaction(sub)
	case games.SwipeCard:
		return resolveSwipe(p, sub)
	case games.PrimeShields:
		return resolveShields(p, sub)
	case games.AlignEngine:
		return resolveAlign(p, sub)
	case games.TimedMath:
		return r.resolveMath(p, sub)
	default:
		return games.Outcome{}, fmt.Errorf("%w: %q", games.ErrUnknownKind, kind)
	}
}

func (r *Resolver) resolveReaction(sub games.Submission) (games.Outcome, error) {
	if sub.ElapsedMS < r.cfg.Reaction.MinElapsedMS {
		return games.Outcome{}, fmt.Errorf("reaction at %dms: %w", sub.ElapsedMS, games.ErrTooEarly)
	}

	for _, band := range r.cfg.Reaction.Bands {
		if sub.ElapsedMS <= band.MaxElapsedMS {
			return games.Outcome{PayoutMinor: band.PayoutMinor, Category: band.Label}, nil
		}
	}

	return games.Outcome{Category: "missed"}, nil
}

func resolveSwipe(p games.RoundParams, sub games.Submission) (games.Outcome, error) {
	if sub.DurationMS <= 0 {
		return games.Outcome{}, fmt.Errorf("swipe not detected: %w", games.ErrInvalidSubmission)
	}

	deviation := sub.DurationMS - p.IdealMS
	if deviation < 0 {
		deviation = -deviation
	}

	tolerance := p.ToleranceMS
	if tolerance < 100 {
		tolerance = 100
	}

	if deviation > tolerance {
		return games.Outcome{Category: "rejected"}, nil
	}

	// factor = max(0.2, 1 - deviation/tolerance)
	factor := decimal.NewFromInt(1).Sub(
		decimal.NewFromInt(deviation).Div(decimal.NewFromInt(tolerance)),
	)
	factor = decimal.Max(factor, decimal.NewFromFloat(0.2))

	return games.Outcome{
		PayoutMinor: scalePayout(p.BaseRewardMinor, factor),
		Category:    "accepted",
	}, nil
}

func resolveShields(p games.RoundParams, sub games.Submission) (games.Outcome, error) {
	if sub.DurationMS <= 0 {
		return games.Outcome{}, fmt.Errorf("shields not toggled: %w", games.ErrInvalidSubmission)
	}

	eff := efficiency(p.IdealMS, sub.DurationMS, 300, decimal.NewFromFloat(0.3))

	return games.Outcome{
		PayoutMinor: scalePayout(p.BaseRewardMinor, eff),
		Category:    "primed",
	}, nil
}

func resolveAlign(p games.RoundParams, sub games.Submission) (games.Outcome, error) {
	delta := sub.Value - p.Target
	if delta < 0 {
		delta = -delta
	}

	if delta > p.Precision {
		return games.Outcome{}, fmt.Errorf("alignment off target by %.2f: %w", delta, games.ErrPrecisionNotMet)
	}

	duration := sub.DurationMS
	if duration <= 0 {
		duration = 1000
	}

	eff := efficiency(p.IdealMS, duration, 400, decimal.NewFromFloat(0.4))

	return games.Outcome{
		PayoutMinor: scalePayout(p.BaseRewardMinor, eff),
		Category:    "aligned",
	}, nil
}

func (r *Resolver) resolveMath(p games.RoundParams, sub games.Submission) (games.Outcome, error) {
	if sub.Answer != p.OperandA*p.OperandB {
		return games.Outcome{Category: "wrong"}, nil
	}

	duration := sub.DurationMS
	if duration < 0 {
		duration = 0
	}

	var speed decimal.Decimal
	if p.TimeLimitMS > 0 {
		speed = decimal.NewFromInt(p.TimeLimitMS - duration).
			Div(decimal.NewFromInt(p.TimeLimitMS))
		speed = decimal.Max(speed, decimal.Zero)
	} else {
		speed = decimal.NewFromInt(1)
	}

	speed = decimal.Max(speed, decimal.NewFromFloat(r.cfg.Math.MinFactor))

	payout := scalePayout(p.BaseRewardMinor, speed)
	if payout < r.cfg.Math.MinRewardMinor {
		payout = r.cfg.Math.MinRewardMinor
	}

	return games.Outcome{PayoutMinor: payout, Category: "solved"}, nil
}

// efficiency is ideal/duration clamped to [floor, 1], with the duration
// floored to keep instantaneous submissions from dividing toward infinity.
func efficiency(idealMS, durationMS, durationFloorMS int64, floor decimal.Decimal) decimal.Decimal {
	if durationMS < durationFloorMS {
		durationMS = durationFloorMS
	}

	eff := decimal.NewFromInt(idealMS).Div(decimal.NewFromInt(durationMS))

	eff = decimal.Min(eff, decimal.NewFromInt(1))
	eff = decimal.Max(eff, floor)

	return eff
}

func scalePayout(baseMinor int64, factor decimal.Decimal) int64 {
	return decimal.NewFromInt(baseMinor).Mul(factor).Round(0).IntPart()
}

func lastBandCutoff(bands []Band) int64 {
	if len(bands) == 0 {
		return 0
	}
	return bands[len(bands)-1].MaxElapsedMS
}
