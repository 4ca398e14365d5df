package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmetrik/gamehall/internal/repos/entries"
)

var _ entries.Entries = (*entriesRepo)(nil)

type entriesRepo struct{ db *sql.DB }

func New(db *sql.DB) *entriesRepo {
	return &entriesRepo{db: db}
}

func (r *entriesRepo) Insert(tx *sql.Tx, e entries.Entry) (int64, error) {
	var id int64

	err := tx.QueryRow(`
		INSERT INTO ledger_entries (source_id, dest_id, amount, kind, causal_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.SourceID, e.DestID, e.AmountMinor, e.Kind, e.CausalRef).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, entries.ErrDuplicateSettlement
			}
		}

		return 0, fmt.Errorf("insert ledger entry: %w", err)
	}

	return id, nil
}

func (r *entriesRepo) ListByCausalRef(ctx context.Context, ref uuid.UUID) ([]entries.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, dest_id, amount, kind, causal_ref, created_at
		FROM ledger_entries
		WHERE causal_ref = $1
		ORDER BY id
	`, ref)
	if err != nil {
		return nil, fmt.Errorf("list by causal ref: %w", err)
	}
	defer rows.Close()

	var out []entries.Entry

	for rows.Next() {
		var e entries.Entry

		err := rows.Scan(&e.ID, &e.SourceID, &e.DestID, &e.AmountMinor, &e.Kind, &e.CausalRef, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return out, nil
}
