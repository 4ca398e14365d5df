package slots

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
)

const (
	LineRow      = "row"
	LineColumn   = "column"
	LineDiagonal = "diagonal"
)

// LineWin describes one winning payline the way the presentation layer
// renders it: the cells that matched, the prize that landed, and the payout
// after multiplier composition.
type LineWin struct {
	LineType    string          `json:"line_type"`
	Index       int             `json:"index"`
	Coordinates [][2]int        `json:"coordinates"`
	Symbol      string          `json:"symbol"`
	Label       string          `json:"label"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	PayoutMinor int64           `json:"payout_minor"`
}

// SpinResult is the realized grid plus every winning line. Reels hold the
// drawn symbols as columns: Reels[reel][row].
type SpinResult struct {
	Reels            [][]string `json:"reels"`
	Wins             []LineWin  `json:"wins"`
	TotalPayoutMinor int64      `json:"total_payout_minor"`
}

type lineDef struct {
	lineType string
	index    int
	coords   [][2]int
}

// Spin draws the grid and evaluates every enabled payline. Reels are drawn
// left to right, cells top to bottom within a reel, one cumulative-weight
// draw per cell; under a fixed rand source the result is fully deterministic.
func (m Machine) Spin(wagerMinor int64, rng *rand.Rand) (SpinResult, error) {
	if wagerMinor <= 0 {
		return SpinResult{}, fmt.Errorf("%w: must be positive", ErrInvalidWager)
	}

	if wagerMinor < m.MinWagerMinor || wagerMinor > m.MaxWagerMinor {
		return SpinResult{}, fmt.Errorf("%w: outside [%d, %d]", ErrInvalidWager, m.MinWagerMinor, m.MaxWagerMinor)
	}

	reels := make([][]string, m.Reels)
	for reel := range reels {
		weights := m.reelWeights(reel)

		var total int64
		for _, w := range weights {
			total += w
		}

		column := make([]string, RowsPerReel)
		for row := range column {
			column[row] = m.drawSymbol(weights, total, rng)
		}

		reels[reel] = column
	}

	wins := m.evaluate(reels, wagerMinor)

	var totalPayout int64
	for _, win := range wins {
		totalPayout += win.PayoutMinor
	}

	return SpinResult{Reels: reels, Wins: wins, TotalPayoutMinor: totalPayout}, nil
}

// drawSymbol picks the first prize whose cumulative weight exceeds a uniform
// draw in [0, total).
func (m Machine) drawSymbol(weights []int64, total int64, rng *rand.Rand) string {
	x := rng.Int63n(total)

	var cum int64
	for i, w := range weights {
		cum += w
		if x < cum {
			return m.Prizes[i].Symbol
		}
	}

	return m.Prizes[len(m.Prizes)-1].Symbol
}

// evaluate walks every enabled payline. A line wins when all its cells hold
// the same symbol and that symbol's prize multiplier is nonzero; simultaneous
// wins accumulate.
func (m Machine) evaluate(reels [][]string, wagerMinor int64) []LineWin {
	prizeBySymbol := make(map[string]Prize, len(m.Prizes))
	for _, p := range m.Prizes {
		prizeBySymbol[p.Symbol] = p
	}

	var wins []LineWin

	for _, def := range m.lineDefs() {
		first := reels[def.coords[0][0]][def.coords[0][1]]

		matched := true
		for _, cell := range def.coords[1:] {
			if reels[cell[0]][cell[1]] != first {
				matched = false
				break
			}
		}

		if !matched {
			continue
		}

		prize, ok := prizeBySymbol[first]
		if !ok || prize.Multiplier == 0 {
			continue
		}

		multiplier := decimal.NewFromFloat(prize.Multiplier).Mul(m.lineMultiplier(def.lineType))
		payout := decimal.NewFromInt(wagerMinor).Mul(multiplier).Round(0).IntPart()

		wins = append(wins, LineWin{
			LineType:    def.lineType,
			Index:       def.index,
			Coordinates: def.coords,
			Symbol:      first,
			Label:       prize.Label,
			Multiplier:  multiplier,
			PayoutMinor: payout,
		})
	}

	return wins
}

// lineDefs enumerates the enabled paylines as (reel, row) coordinate runs.
// Diagonals exist only on square grids.
func (m Machine) lineDefs() []lineDef {
	var defs []lineDef

	if m.Lines.Rows {
		for row := 0; row < RowsPerReel; row++ {
			coords := make([][2]int, m.Reels)
			for reel := 0; reel < m.Reels; reel++ {
				coords[reel] = [2]int{reel, row}
			}
			defs = append(defs, lineDef{lineType: LineRow, index: row, coords: coords})
		}
	}

	if m.Lines.Columns {
		for reel := 0; reel < m.Reels; reel++ {
			coords := make([][2]int, RowsPerReel)
			for row := 0; row < RowsPerReel; row++ {
				coords[row] = [2]int{reel, row}
			}
			defs = append(defs, lineDef{lineType: LineColumn, index: reel, coords: coords})
		}
	}

	if m.Lines.Diagonals && m.Reels == RowsPerReel {
		main := make([][2]int, m.Reels)
		anti := make([][2]int, m.Reels)
		for i := 0; i < m.Reels; i++ {
			main[i] = [2]int{i, i}
			anti[i] = [2]int{m.Reels - 1 - i, i}
		}
		defs = append(defs,
			lineDef{lineType: LineDiagonal, index: 0, coords: main},
			lineDef{lineType: LineDiagonal, index: 1, coords: anti},
		)
	}

	return defs
}
