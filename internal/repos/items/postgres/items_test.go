package items

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmetrik/gamehall/internal/infra/pgtestutil"
	"github.com/dmetrik/gamehall/internal/repos/items"
)

func seedItem(t *testing.T, db *sql.DB, id, merchantID, price int64, stock int) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO accounts (id, display_name, role, balance)
		VALUES ($1, 'merchant', 'merchant', 0)
		ON CONFLICT (id) DO NOTHING
	`, merchantID)
	if err != nil {
		t.Fatalf("seed merchant: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO items (id, merchant_id, name, price, stock)
		VALUES ($1, $2, 'test item', $3, $4)
	`, id, merchantID, price, stock)
	if err != nil {
		t.Fatalf("seed item %d: %v", id, err)
	}
}

func TestItems_GetAndUpdatePrice(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedItem(t, db, 1, 100, 2500, 10)

	it, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if it.PriceMinor != 2500 || it.Stock != 10 {
		t.Errorf("item = %+v, want price 2500 stock 10", it)
	}

	if err := repo.UpdatePrice(context.Background(), 1, 2600); err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}

	it, err = repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if it.PriceMinor != 2600 {
		t.Errorf("price = %d, want 2600", it.PriceMinor)
	}

	if _, err := repo.Get(context.Background(), 99); !errors.Is(err, items.ErrItemNotFound) {
		t.Errorf("Get(99) = %v, want ErrItemNotFound", err)
	}
	if err := repo.UpdatePrice(context.Background(), 99, 100); !errors.Is(err, items.ErrItemNotFound) {
		t.Errorf("UpdatePrice(99) = %v, want ErrItemNotFound", err)
	}
}

func TestItems_DecrementStock(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedItem(t, db, 2, 100, 1000, 3)

	decrement := func(qty int) error {
		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("begin: %v", err)
		}

		if err := repo.DecrementStock(tx, 2, qty); err != nil {
			_ = tx.Rollback()
			return err
		}

		return tx.Commit()
	}

	if err := decrement(2); err != nil {
		t.Fatalf("decrement 2: %v", err)
	}

	if err := decrement(2); !errors.Is(err, items.ErrOutOfStock) {
		t.Fatalf("oversold decrement = %v, want ErrOutOfStock", err)
	}

	it, err := repo.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if it.Stock != 1 {
		t.Errorf("stock = %d, want 1", it.Stock)
	}
}

func TestItems_PriceHistory(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedItem(t, db, 3, 100, 1000, 5)

	for i, price := range []int64{1000, 1050, 1103} {
		err := repo.InsertPriceSample(context.Background(), items.PriceSample{
			ItemID:     3,
			PriceMinor: price,
			Quantity:   i + 1,
		})
		if err != nil {
			t.Fatalf("InsertPriceSample: %v", err)
		}
	}

	samples, err := repo.RecentPriceSamples(context.Background(), 3, 2)
	if err != nil {
		t.Fatalf("RecentPriceSamples: %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	if samples[0].PriceMinor != 1103 || samples[1].PriceMinor != 1050 {
		t.Errorf("samples = %+v, want newest first (1103, 1050)", samples)
	}
}
