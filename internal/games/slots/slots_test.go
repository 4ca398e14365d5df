package slots_test

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/dmetrik/gamehall/internal/games/slots"
)

func singleSymbolMachine(multiplier float64, lines slots.LineConfig) slots.Machine {
	return slots.Machine{
		Key:   "test",
		Name:  "Test Machine",
		Reels: 3,
		Prizes: []slots.Prize{
			{Symbol: "7", Label: "Lucky Seven", Multiplier: multiplier, Weight: 1},
		},
		Lines:         lines,
		MinWagerMinor: 1,
		MaxWagerMinor: 1_000_000,
	}
}

func TestSpinRowsOnlyUniformGrid(t *testing.T) {
	t.Parallel()

	m := singleSymbolMachine(2.0, slots.LineConfig{Rows: true})

	res, err := m.Spin(100, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}

	if len(res.Wins) != 3 {
		t.Fatalf("wins = %d, want 3 row wins", len(res.Wins))
	}

	for _, win := range res.Wins {
		if win.LineType != slots.LineRow {
			t.Errorf("line type = %q, want row", win.LineType)
		}
		if win.PayoutMinor != 200 {
			t.Errorf("line payout = %d, want 200", win.PayoutMinor)
		}
	}

	if res.TotalPayoutMinor != 600 {
		t.Errorf("total payout = %d, want wager x2 x3 = 600", res.TotalPayoutMinor)
	}
}

func TestSpinAllLinesUniformGrid(t *testing.T) {
	t.Parallel()

	m := singleSymbolMachine(1.0, slots.LineConfig{
		Rows:               true,
		Columns:            true,
		Diagonals:          true,
		DiagonalMultiplier: 1.5,
	})

	res, err := m.Spin(100, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}

	if len(res.Wins) != 8 {
		t.Fatalf("wins = %d, want 3 rows + 3 columns + 2 diagonals", len(res.Wins))
	}

	// 6 straight lines at 100 each, 2 diagonals at 150 each.
	if res.TotalPayoutMinor != 900 {
		t.Errorf("total payout = %d, want 900", res.TotalPayoutMinor)
	}

	var diagonals int
	for _, win := range res.Wins {
		if win.LineType == slots.LineDiagonal {
			diagonals++
			if win.PayoutMinor != 150 {
				t.Errorf("diagonal payout = %d, want 150", win.PayoutMinor)
			}
		}
	}

	if diagonals != 2 {
		t.Errorf("diagonal wins = %d, want 2", diagonals)
	}
}

func TestSpinZeroMultiplierNeverWins(t *testing.T) {
	t.Parallel()

	m := singleSymbolMachine(0, slots.LineConfig{Rows: true, Columns: true, Diagonals: true})

	res, err := m.Spin(100, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}

	if len(res.Wins) != 0 || res.TotalPayoutMinor != 0 {
		t.Errorf("got %d wins paying %d, want none", len(res.Wins), res.TotalPayoutMinor)
	}
}

func TestSpinDeterministicUnderFixedSource(t *testing.T) {
	t.Parallel()

	catalog, err := slots.NewCatalog(slots.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	m, err := catalog.Get("nova")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	first, err := m.Spin(500, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}

	second, err := m.Spin(500, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("same source produced different results:\n%+v\n%+v", first, second)
	}

	if len(first.Reels) != 3 {
		t.Fatalf("reels = %d, want 3", len(first.Reels))
	}
	for _, column := range first.Reels {
		if len(column) != slots.RowsPerReel {
			t.Fatalf("column height = %d, want %d", len(column), slots.RowsPerReel)
		}
	}
}

func TestSpinWagerBounds(t *testing.T) {
	t.Parallel()

	catalog, err := slots.NewCatalog(slots.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	m, err := catalog.Get("nova")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	for _, wager := range []int64{0, -100, 50, 50001} {
		_, err := m.Spin(wager, rand.New(rand.NewSource(1)))
		if !errors.Is(err, slots.ErrInvalidWager) {
			t.Errorf("Spin(%d) error = %v, want ErrInvalidWager", wager, err)
		}
	}
}

func TestHeavyWeightsDominateDraws(t *testing.T) {
	t.Parallel()

	m := slots.Machine{
		Key:   "weighted",
		Name:  "Weighted",
		Reels: 3,
		Prizes: []slots.Prize{
			{Symbol: "R", Label: "Rare", Multiplier: 5, Weight: 1},
			{Symbol: "C", Label: "Common", Multiplier: 0.5, Weight: 999},
		},
		Lines:         slots.LineConfig{Rows: true},
		MinWagerMinor: 1,
		MaxWagerMinor: 1000,
	}

	rng := rand.New(rand.NewSource(99))
	counts := map[string]int{}

	for i := 0; i < 200; i++ {
		res, err := m.Spin(10, rng)
		if err != nil {
			t.Fatalf("Spin: %v", err)
		}
		for _, column := range res.Reels {
			for _, symbol := range column {
				counts[symbol]++
			}
		}
	}

	if counts["C"] <= counts["R"] {
		t.Errorf("common symbol drawn %d times vs rare %d; weights not applied", counts["C"], counts["R"])
	}
}

func TestCatalogUnknownMachine(t *testing.T) {
	t.Parallel()

	catalog, err := slots.NewCatalog(slots.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	_, err = catalog.Get("vault")
	if !errors.Is(err, slots.ErrUnknownMachine) {
		t.Fatalf("Get(vault) error = %v, want ErrUnknownMachine", err)
	}

	if got := len(catalog.List()); got != 3 {
		t.Fatalf("List() = %d machines, want 3", got)
	}
}

func TestCatalogRejectsBadMachines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*slots.Machine)
	}{
		{name: "no prizes", mutate: func(m *slots.Machine) { m.Prizes = nil }},
		{name: "zero weight", mutate: func(m *slots.Machine) { m.Prizes[0].Weight = 0 }},
		{name: "no lines", mutate: func(m *slots.Machine) { m.Lines = slots.LineConfig{} }},
		{name: "inverted wager bounds", mutate: func(m *slots.Machine) { m.MinWagerMinor = 500; m.MaxWagerMinor = 100 }},
		{name: "reel weight shape", mutate: func(m *slots.Machine) { m.ReelWeights = [][]int64{{1}} }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := singleSymbolMachine(1.0, slots.LineConfig{Rows: true})
			tc.mutate(&m)

			_, err := slots.NewCatalog(slots.Config{Machines: []slots.Machine{m}})
			if err == nil {
				t.Fatal("NewCatalog accepted an invalid machine")
			}
		})
	}
}
