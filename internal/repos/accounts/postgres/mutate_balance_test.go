package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmetrik/gamehall/internal/infra/pgtestutil"
	"github.com/dmetrik/gamehall/internal/repos/accounts"
)

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	err = fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return nil
}

func TestAccounts_IncreaseBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 30, 100)

	err := inTx(t, db, func(tx *sql.Tx) error {
		return repo.IncreaseBalance(tx, 30, 250)
	})
	if err != nil {
		t.Fatalf("IncreaseBalance: %v", err)
	}

	got, err := repo.GetBalance(context.Background(), 30)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got != 350 {
		t.Errorf("balance = %d, want 350", got)
	}
}

func TestAccounts_DecreaseBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	tests := []struct {
		name        string
		accountID   int64
		start       int64
		amount      int64
		wantErr     error
		wantBalance int64
	}{
		{name: "covered debit", accountID: 40, start: 500, amount: 200, wantBalance: 300},
		{name: "exact debit", accountID: 41, start: 500, amount: 500, wantBalance: 0},
		{name: "uncovered debit", accountID: 42, start: 100, amount: 200, wantErr: accounts.ErrInsufficientFunds, wantBalance: 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seedAccount(t, db, tc.accountID, tc.start)

			err := inTx(t, db, func(tx *sql.Tx) error {
				return repo.DecreaseBalance(tx, tc.accountID, tc.amount)
			})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("DecreaseBalance error = %v, want %v", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("DecreaseBalance: %v", err)
			}

			got, err := repo.GetBalance(context.Background(), tc.accountID)
			if err != nil {
				t.Fatalf("GetBalance: %v", err)
			}
			if got != tc.wantBalance {
				t.Errorf("balance = %d, want %d", got, tc.wantBalance)
			}
		})
	}
}
