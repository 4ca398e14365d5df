// Package pricing derives merchant item prices from observed sales and damps
// game payouts when a game runs hot. Price movement is a side effect of a
// committed sale, never a precondition: a pricing failure is logged by the
// caller and the underlying transfer stands.
package pricing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dmetrik/gamehall/internal/repos/items"
)

type Config struct {
	// EMAAlpha is the weight of the latest clearing price in the demand
	// baseline, in (0, 1].
	EMAAlpha float64 `toml:"ema_alpha"`

	// ImpactPerUnit nudges the listed price up per unit sold, compounding:
	// 0.03 means each unit raises the price 3%.
	ImpactPerUnit float64 `toml:"impact_per_unit"`

	// IdleDecayPerHour pulls the listed price back toward the demand baseline
	// while nothing sells, applied lazily on the next read or sale.
	IdleDecayPerHour float64 `toml:"idle_decay_per_hour"`

	FloorMinor   int64 `toml:"floor_minor"`
	CeilingMinor int64 `toml:"ceiling_minor"`
}

func DefaultConfig() Config {
	return Config{
		EMAAlpha:         0.3,
		ImpactPerUnit:    0.03,
		IdleDecayPerHour: 0.05,
		FloorMinor:       100,
		CeilingMinor:     1_000_000,
	}
}

type itemState struct {
	emaMinor   float64
	lastSaleAt time.Time
}

// Engine owns item price movement. Demand state is in-memory and re-seeds
// from the stored price after a restart; the stored price and the
// price_history rows are the durable record.
type Engine struct {
	cfg   Config
	items items.Items
	now   func() time.Time

	mu    sync.Mutex
	state map[int64]*itemState
}

func NewEngine(cfg Config, itemsRepo items.Items) *Engine {
	return &Engine{
		cfg:   cfg,
		items: itemsRepo,
		now:   time.Now,
		state: make(map[int64]*itemState),
	}
}

// RecordSale appends a price history sample and moves the listed price:
// the clearing price feeds the EMA baseline, each sold unit compounds the
// demand impact, and the result is clamped to the configured band.
func (e *Engine) RecordSale(ctx context.Context, itemID int64, quantity int, clearingPriceMinor int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity %d must be positive", quantity)
	}

	item, err := e.items.Get(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("load item: %w", err)
	}

	e.mu.Lock()
	st := e.stateFor(itemID, item.PriceMinor)

	now := e.now()
	listed := e.decayedLocked(st, float64(item.PriceMinor), now)

	st.emaMinor = e.cfg.EMAAlpha*float64(clearingPriceMinor) + (1-e.cfg.EMAAlpha)*st.emaMinor
	listed *= math.Pow(1+e.cfg.ImpactPerUnit, float64(quantity))
	st.lastSaleAt = now
	e.mu.Unlock()

	next := e.clamp(int64(math.Round(listed)))

	if err := e.items.UpdatePrice(ctx, itemID, next); err != nil {
		return 0, fmt.Errorf("store price: %w", err)
	}

	err = e.items.InsertPriceSample(ctx, items.PriceSample{
		ItemID:     itemID,
		PriceMinor: clearingPriceMinor,
		Quantity:   quantity,
	})
	if err != nil {
		return 0, fmt.Errorf("append price history: %w", err)
	}

	return next, nil
}

// CurrentPrice reads the listed price with idle decay applied, persisting the
// decayed value when it moved.
func (e *Engine) CurrentPrice(ctx context.Context, itemID int64) (int64, error) {
	item, err := e.items.Get(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("load item: %w", err)
	}

	e.mu.Lock()
	st := e.stateFor(itemID, item.PriceMinor)
	decayed := e.clamp(int64(math.Round(e.decayedLocked(st, float64(item.PriceMinor), e.now()))))
	e.mu.Unlock()

	if decayed != item.PriceMinor {
		if err := e.items.UpdatePrice(ctx, itemID, decayed); err != nil {
			return 0, fmt.Errorf("store decayed price: %w", err)
		}
	}

	return decayed, nil
}

// stateFor must be called with e.mu held.
func (e *Engine) stateFor(itemID int64, priceMinor int64) *itemState {
	st, ok := e.state[itemID]
	if !ok {
		st = &itemState{emaMinor: float64(priceMinor), lastSaleAt: e.now()}
		e.state[itemID] = st
	}

	return st
}

// decayedLocked moves the listed price toward the EMA baseline in proportion
// to idle time. Must be called with e.mu held.
func (e *Engine) decayedLocked(st *itemState, listed float64, now time.Time) float64 {
	idleHours := now.Sub(st.lastSaleAt).Hours()
	if idleHours <= 0 || e.cfg.IdleDecayPerHour <= 0 {
		return listed
	}

	keep := math.Pow(1-e.cfg.IdleDecayPerHour, idleHours)

	return st.emaMinor + (listed-st.emaMinor)*keep
}

func (e *Engine) clamp(priceMinor int64) int64 {
	if priceMinor < e.cfg.FloorMinor {
		return e.cfg.FloorMinor
	}
	if e.cfg.CeilingMinor > 0 && priceMinor > e.cfg.CeilingMinor {
		return e.cfg.CeilingMinor
	}

	return priceMinor
}
