package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dmetrik/gamehall/internal/repos/accounts"
)

// LockAndGetBalances locks the account rows in ascending id order so that
// overlapping batches always contend in the same sequence.
func (r *accountsRepo) LockAndGetBalances(tx *sql.Tx, accountIDs []int64) (map[int64]int64, error) {
	ids := make([]int64, len(accountIDs))
	copy(ids, accountIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	balances := make(map[int64]int64, len(ids))

	for _, id := range ids {
		if _, done := balances[id]; done {
			continue
		}

		var balance int64

		err := tx.QueryRow(`
			SELECT balance
			FROM accounts
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&balance)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("account %d: %w", id, accounts.ErrAccountNotFound)
			}

			return nil, fmt.Errorf("lock/get balance %d: %w", id, err)
		}

		balances[id] = balance
	}

	return balances, nil
}
