package accounts

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/dmetrik/gamehall/internal/infra/pgtestutil"
	"github.com/dmetrik/gamehall/internal/repos/accounts"
)

func TestAccounts_LockAndGetBalances(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 50, 1000)
	seedAccount(t, db, 51, 2000)

	err := inTx(t, db, func(tx *sql.Tx) error {
		balances, err := repo.LockAndGetBalances(tx, []int64{51, 50, 51})
		if err != nil {
			return err
		}

		if balances[50] != 1000 || balances[51] != 2000 {
			t.Errorf("balances = %v, want {50:1000 51:2000}", balances)
		}
		if len(balances) != 2 {
			t.Errorf("locked %d accounts, want 2 (duplicates collapsed)", len(balances))
		}

		return nil
	})
	if err != nil {
		t.Fatalf("lock and get: %v", err)
	}
}

func TestAccounts_LockAndGetBalances_MissingAccount(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 60, 100)

	err := inTx(t, db, func(tx *sql.Tx) error {
		_, err := repo.LockAndGetBalances(tx, []int64{60, 61})
		return err
	})
	if !errors.Is(err, accounts.ErrAccountNotFound) {
		t.Fatalf("error = %v, want ErrAccountNotFound", err)
	}
}

// Opposite-order lock requests must not deadlock: the repo sorts ids before
// locking, so both transactions contend on account 70 first.
func TestAccounts_LockOrderingAvoidsDeadlock(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 70, 1000)
	seedAccount(t, db, 71, 1000)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for _, order := range [][]int64{{70, 71}, {71, 70}} {
		wg.Add(1)
		go func(ids []int64) {
			defer wg.Done()

			errCh <- func() error {
				tx, err := db.Begin()
				if err != nil {
					return err
				}

				if _, err := repo.LockAndGetBalances(tx, ids); err != nil {
					_ = tx.Rollback()
					return err
				}
				if err := repo.DecreaseBalance(tx, ids[0], 10); err != nil {
					_ = tx.Rollback()
					return err
				}
				if err := repo.IncreaseBalance(tx, ids[1], 10); err != nil {
					_ = tx.Rollback()
					return err
				}

				return tx.Commit()
			}()
		}(order)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Errorf("concurrent locked transfer: %v", err)
		}
	}
}
