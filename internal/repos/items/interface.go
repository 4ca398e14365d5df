package items

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrItemNotFound = errors.New("item not found")
var ErrOutOfStock = errors.New("out of stock")

// Item is a merchant listing. The listed price belongs to the pricing engine;
// stock only moves together with a committed sale.
type Item struct {
	ID         int64
	MerchantID int64
	Name       string
	PriceMinor int64
	Stock      int
	UpdatedAt  time.Time
}

// PriceSample is one point of an item's append-only price history.
type PriceSample struct {
	ID         int64
	ItemID     int64
	PriceMinor int64
	Quantity   int
	RecordedAt time.Time
}

type Items interface {
	Get(ctx context.Context, itemID int64) (Item, error)

	// LockAndGet locks the item row for the duration of a sale transaction.
	LockAndGet(tx *sql.Tx, itemID int64) (Item, error)

	// DecrementStock reduces stock only when enough units remain; otherwise
	// it returns ErrOutOfStock and changes nothing.
	DecrementStock(tx *sql.Tx, itemID int64, quantity int) error

	UpdatePrice(ctx context.Context, itemID int64, priceMinor int64) error
	InsertPriceSample(ctx context.Context, sample PriceSample) error
	RecentPriceSamples(ctx context.Context, itemID int64, limit int) ([]PriceSample, error)
}
