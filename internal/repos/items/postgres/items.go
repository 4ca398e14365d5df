package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmetrik/gamehall/internal/repos/items"
)

var _ items.Items = (*itemsRepo)(nil)

type itemsRepo struct{ db *sql.DB }

func New(db *sql.DB) *itemsRepo {
	return &itemsRepo{db: db}
}

const itemColumns = `id, merchant_id, name, price, stock, updated_at`

func (r *itemsRepo) Get(ctx context.Context, itemID int64) (items.Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1
	`, itemID)

	return scanItem(row)
}

func (r *itemsRepo) LockAndGet(tx *sql.Tx, itemID int64) (items.Item, error) {
	row := tx.QueryRow(`
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1
		FOR UPDATE
	`, itemID)

	return scanItem(row)
}

func (r *itemsRepo) DecrementStock(tx *sql.Tx, itemID int64, quantity int) error {
	res, err := tx.Exec(`
		UPDATE items
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1
		  AND stock >= $2
	`, itemID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return items.ErrOutOfStock
	}

	return nil
}

func (r *itemsRepo) UpdatePrice(ctx context.Context, itemID int64, priceMinor int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET price = $2, updated_at = now()
		WHERE id = $1
	`, itemID, priceMinor)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return items.ErrItemNotFound
	}

	return nil
}

func (r *itemsRepo) InsertPriceSample(ctx context.Context, sample items.PriceSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_history (item_id, price, quantity)
		VALUES ($1, $2, $3)
	`, sample.ItemID, sample.PriceMinor, sample.Quantity)
	if err != nil {
		return fmt.Errorf("insert price sample: %w", err)
	}

	return nil
}

func (r *itemsRepo) RecentPriceSamples(ctx context.Context, itemID int64, limit int) ([]items.PriceSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, price, quantity, recorded_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent price samples: %w", err)
	}
	defer rows.Close()

	var out []items.PriceSample

	for rows.Next() {
		var s items.PriceSample

		err := rows.Scan(&s.ID, &s.ItemID, &s.PriceMinor, &s.Quantity, &s.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan price sample: %w", err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price samples: %w", err)
	}

	return out, nil
}

func scanItem(row *sql.Row) (items.Item, error) {
	var it items.Item

	err := row.Scan(&it.ID, &it.MerchantID, &it.Name, &it.PriceMinor, &it.Stock, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return items.Item{}, items.ErrItemNotFound
		}

		return items.Item{}, fmt.Errorf("scan item: %w", err)
	}

	return it, nil
}
