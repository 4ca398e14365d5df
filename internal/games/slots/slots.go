// Package slots implements the multi-line slot machine: weighted reel draws
// over a machine catalog and payline evaluation over the drawn grid.
package slots

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RowsPerReel is the visible window height. Paylines are defined over a
// RowsPerReel x Reels grid.
const RowsPerReel = 3

var (
	ErrUnknownMachine = errors.New("unknown slot machine")
	ErrInvalidWager   = errors.New("invalid wager")
)

// Prize is one symbol of a machine's reel distribution. Weight is the
// symbol's share of the cumulative draw; Multiplier scales the wager when a
// payline lands on the symbol.
type Prize struct {
	Symbol     string  `toml:"symbol"`
	Label      string  `toml:"label"`
	Multiplier float64 `toml:"multiplier"`
	Weight     int64   `toml:"weight"`
}

// LineConfig selects which payline families a machine evaluates and how each
// family scales a winning line's payout.
type LineConfig struct {
	Rows               bool    `toml:"rows"`
	Columns            bool    `toml:"columns"`
	Diagonals          bool    `toml:"diagonals"`
	RowMultiplier      float64 `toml:"row_multiplier"`
	ColumnMultiplier   float64 `toml:"column_multiplier"`
	DiagonalMultiplier float64 `toml:"diagonal_multiplier"`
}

// Machine is one configured slot machine. Every reel draws from the shared
// prize table unless ReelWeights overrides the weights for that reel.
type Machine struct {
	Key           string     `toml:"key"`
	Name          string     `toml:"name"`
	Theme         string     `toml:"theme"`
	Reels         int        `toml:"reels"`
	Prizes        []Prize    `toml:"prizes"`
	ReelWeights   [][]int64  `toml:"reel_weights"`
	Lines         LineConfig `toml:"lines"`
	MinWagerMinor int64      `toml:"min_wager_minor"`
	MaxWagerMinor int64      `toml:"max_wager_minor"`
}

type Config struct {
	Machines []Machine `toml:"machines"`
}

// Catalog is the validated, read-only set of machines settlement spins
// against. Constructed once at startup.
type Catalog struct {
	machines map[string]Machine
	order    []string
}

func NewCatalog(cfg Config) (*Catalog, error) {
	if len(cfg.Machines) == 0 {
		return nil, errors.New("no slot machines configured")
	}

	c := &Catalog{machines: make(map[string]Machine, len(cfg.Machines))}

	for _, m := range cfg.Machines {
		err := m.validate()
		if err != nil {
			return nil, fmt.Errorf("machine %q: %w", m.Key, err)
		}

		if _, dup := c.machines[m.Key]; dup {
			return nil, fmt.Errorf("machine %q: duplicate key", m.Key)
		}

		c.machines[m.Key] = m
		c.order = append(c.order, m.Key)
	}

	return c, nil
}

// Get returns the machine registered under key.
func (c *Catalog) Get(key string) (Machine, error) {
	m, ok := c.machines[key]
	if !ok {
		return Machine{}, fmt.Errorf("%w: %q", ErrUnknownMachine, key)
	}

	return m, nil
}

// List returns the machines in configuration order.
func (c *Catalog) List() []Machine {
	out := make([]Machine, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.machines[key])
	}

	return out
}

func (m Machine) validate() error {
	if m.Key == "" {
		return errors.New("empty key")
	}

	if m.Reels < 1 {
		return fmt.Errorf("reels = %d, need at least 1", m.Reels)
	}

	if len(m.Prizes) == 0 {
		return errors.New("no prizes")
	}

	for _, p := range m.Prizes {
		if p.Symbol == "" {
			return errors.New("prize with empty symbol")
		}
		if p.Weight <= 0 {
			return fmt.Errorf("prize %q: weight %d must be positive", p.Symbol, p.Weight)
		}
		if p.Multiplier < 0 {
			return fmt.Errorf("prize %q: negative multiplier", p.Symbol)
		}
	}

	if len(m.ReelWeights) != 0 {
		if len(m.ReelWeights) != m.Reels {
			return fmt.Errorf("reel_weights has %d rows for %d reels", len(m.ReelWeights), m.Reels)
		}
		for reel, weights := range m.ReelWeights {
			if len(weights) != len(m.Prizes) {
				return fmt.Errorf("reel %d: %d weights for %d prizes", reel, len(weights), len(m.Prizes))
			}
			for i, w := range weights {
				if w <= 0 {
					return fmt.Errorf("reel %d prize %d: weight %d must be positive", reel, i, w)
				}
			}
		}
	}

	if !m.Lines.Rows && !m.Lines.Columns && !m.Lines.Diagonals {
		return errors.New("no paylines enabled")
	}

	if m.MinWagerMinor <= 0 || m.MaxWagerMinor < m.MinWagerMinor {
		return fmt.Errorf("wager bounds [%d, %d] invalid", m.MinWagerMinor, m.MaxWagerMinor)
	}

	return nil
}

// reelWeights returns the weight column for one reel, falling back to the
// shared prize weights.
func (m Machine) reelWeights(reel int) []int64 {
	if len(m.ReelWeights) == m.Reels {
		return m.ReelWeights[reel]
	}

	weights := make([]int64, len(m.Prizes))
	for i, p := range m.Prizes {
		weights[i] = p.Weight
	}

	return weights
}

func (m Machine) lineMultiplier(lineType string) decimal.Decimal {
	var raw float64

	switch lineType {
	case LineRow:
		raw = m.Lines.RowMultiplier
	case LineColumn:
		raw = m.Lines.ColumnMultiplier
	case LineDiagonal:
		raw = m.Lines.DiagonalMultiplier
	}

	if raw <= 0 {
		return decimal.NewFromInt(1)
	}

	return decimal.NewFromFloat(raw)
}

// DefaultConfig returns the stock floor: three themed machines sharing the
// same grid shape but tuned with different prize tables.
func DefaultConfig() Config {
	allLines := LineConfig{Rows: true, Columns: true, Diagonals: true}

	return Config{Machines: []Machine{
		{
			Key:   "nova",
			Name:  "Nebula Nights",
			Theme: "Cosmic auroras and shimmering stardust",
			Reels: 3,
			Prizes: []Prize{
				{Symbol: "🌠", Label: "Shooting Stars", Multiplier: 1.6, Weight: 2},
				{Symbol: "🪐", Label: "Orbiting Planets", Multiplier: 1.4, Weight: 3},
				{Symbol: "✨", Label: "Stellar Glints", Multiplier: 1.2, Weight: 4},
				{Symbol: "☄️", Label: "Comet Flash", Multiplier: 1.0, Weight: 6},
				{Symbol: "💫", Label: "Gravity Loop", Multiplier: 0.8, Weight: 8},
				{Symbol: "🌌", Label: "Galactic Glow", Multiplier: 0.6, Weight: 9},
			},
			Lines:         allLines,
			MinWagerMinor: 100,
			MaxWagerMinor: 50000,
		},
		{
			Key:   "neon",
			Name:  "Neon Mirage",
			Theme: "Cyberpunk skylines flickering in synthwave hues",
			Reels: 3,
			Prizes: []Prize{
				{Symbol: "🔮", Label: "Crystal Visions", Multiplier: 1.7, Weight: 2},
				{Symbol: "💎", Label: "Diamond Pulse", Multiplier: 1.5, Weight: 3},
				{Symbol: "🎰", Label: "Jackpot Echo", Multiplier: 1.3, Weight: 4},
				{Symbol: "🛸", Label: "Hover Cab", Multiplier: 1.1, Weight: 5},
				{Symbol: "💡", Label: "Neon Spark", Multiplier: 0.9, Weight: 8},
				{Symbol: "🪙", Label: "Token Toss", Multiplier: 0.7, Weight: 10},
			},
			Lines:         allLines,
			MinWagerMinor: 100,
			MaxWagerMinor: 50000,
		},
		{
			Key:   "abyss",
			Name:  "Abyssal Fortune",
			Theme: "Deep-sea treasures guarded by luminous creatures",
			Reels: 3,
			Prizes: []Prize{
				{Symbol: "🐚", Label: "Pearl Cache", Multiplier: 1.8, Weight: 1},
				{Symbol: "🪸", Label: "Coral Bloom", Multiplier: 1.5, Weight: 3},
				{Symbol: "🐙", Label: "Octo Whirl", Multiplier: 1.2, Weight: 5},
				{Symbol: "🦑", Label: "Ink Trail", Multiplier: 1.0, Weight: 6},
				{Symbol: "🔱", Label: "Tidal Crest", Multiplier: 0.85, Weight: 8},
				{Symbol: "🐠", Label: "School Swirl", Multiplier: 0.65, Weight: 9},
			},
			Lines: LineConfig{
				Rows:               true,
				Columns:            true,
				Diagonals:          true,
				DiagonalMultiplier: 1.5,
			},
			MinWagerMinor: 100,
			MaxWagerMinor: 50000,
		},
	}}
}
