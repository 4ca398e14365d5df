package pricing

import (
	"math"
	"sync"
	"time"

	"github.com/dmetrik/gamehall/internal/games"
)

// DamperConfig tunes the per-game payout multiplier that keeps a hot game
// from draining the house: heavy payout volume decays a game's multiplier,
// idle time recovers it toward baseline.
type DamperConfig struct {
	Baseline float64 `toml:"baseline"`
	Min      float64 `toml:"min"`
	Max      float64 `toml:"max"`

	// LiquidityMinor scales decay: paying out this much in one settlement
	// drops the multiplier by DecayShare of its current value.
	LiquidityMinor int64   `toml:"liquidity_minor"`
	DecayShare     float64 `toml:"decay_share"`

	RecoveryPerHour float64 `toml:"recovery_per_hour"`
}

func DefaultDamperConfig() DamperConfig {
	return DamperConfig{
		Baseline:        1.0,
		Min:             0.4,
		Max:             1.2,
		LiquidityMinor:  100_000,
		DecayShare:      0.5,
		RecoveryPerHour: 0.1,
	}
}

type damperState struct {
	value  float64
	lastAt time.Time
}

// Damper holds one multiplier per game kind. Only positive payouts are
// scaled; wagers and penalties pass through untouched.
type Damper struct {
	cfg DamperConfig
	now func() time.Time

	mu    sync.Mutex
	state map[games.Kind]*damperState
}

func NewDamper(cfg DamperConfig) *Damper {
	return &Damper{
		cfg:   cfg,
		now:   time.Now,
		state: make(map[games.Kind]*damperState),
	}
}

// Scale applies the game's current multiplier to a payout and decays the
// multiplier by the paid volume. Non-positive payouts pass through.
func (d *Damper) Scale(kind games.Kind, payoutMinor int64) int64 {
	if payoutMinor <= 0 {
		return payoutMinor
	}

	return d.ScaleAll(kind, []int64{payoutMinor})[0]
}

// ScaleAll scales every payout of one settlement under a single multiplier
// snapshot and decays once by the total paid, so the parts always sum to
// what the settlement pays. Non-positive entries pass through.
func (d *Damper) ScaleAll(kind games.Kind, payoutsMinor []int64) []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.stateFor(kind)
	d.recoverLocked(st)

	scaled := make([]int64, len(payoutsMinor))
	var total int64
	for i, p := range payoutsMinor {
		if p <= 0 {
			scaled[i] = p
			continue
		}

		scaled[i] = int64(math.Round(float64(p) * st.value))
		total += scaled[i]
	}

	if total > 0 {
		if d.cfg.LiquidityMinor > 0 {
			share := float64(total) / float64(d.cfg.LiquidityMinor)
			st.value -= st.value * d.cfg.DecayShare * share
			st.value = d.clampValue(st.value)
		}

		st.lastAt = d.now()
	}

	return scaled
}

// Multiplier reports a game's current multiplier after idle recovery.
func (d *Damper) Multiplier(kind games.Kind) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.stateFor(kind)
	d.recoverLocked(st)

	return st.value
}

// stateFor must be called with d.mu held.
func (d *Damper) stateFor(kind games.Kind) *damperState {
	st, ok := d.state[kind]
	if !ok {
		st = &damperState{value: d.cfg.Baseline, lastAt: d.now()}
		d.state[kind] = st
	}

	return st
}

// recoverLocked moves the multiplier toward baseline in proportion to idle
// time. Must be called with d.mu held.
func (d *Damper) recoverLocked(st *damperState) {
	idleHours := d.now().Sub(st.lastAt).Hours()
	if idleHours <= 0 || d.cfg.RecoveryPerHour <= 0 {
		return
	}

	keep := math.Pow(1-d.cfg.RecoveryPerHour, idleHours)
	st.value = d.cfg.Baseline + (st.value-d.cfg.Baseline)*keep
	st.value = d.clampValue(st.value)
	st.lastAt = d.now()
}

func (d *Damper) clampValue(v float64) float64 {
	if v < d.cfg.Min {
		return d.cfg.Min
	}
	if v > d.cfg.Max {
		return d.cfg.Max
	}

	return v
}
