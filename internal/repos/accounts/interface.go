package accounts

import (
	"context"
	"database/sql"
	"errors"
)

var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrAccountNotFound = errors.New("account not found")

// Account is one balance-holding participant: a player, a merchant, or the
// house. Balances are int64 minor units (hundredths of a credit).
type Account struct {
	ID           int64
	DisplayName  string
	Role         string
	BalanceMinor int64
}

type Accounts interface {
	Exists(tx *sql.Tx, accountID int64) error
	GetBalance(ctx context.Context, accountID int64) (int64, error)

	// LockAndGetBalances acquires row locks on every listed account in
	// ascending id order and returns the locked balances. The fixed lock
	// ordering is what keeps concurrent multi-account commits deadlock-free.
	LockAndGetBalances(tx *sql.Tx, accountIDs []int64) (map[int64]int64, error)

	IncreaseBalance(tx *sql.Tx, accountID int64, amountMinor int64) error

	// DecreaseBalance debits only when the current balance covers the amount;
	// otherwise it returns ErrInsufficientFunds and changes nothing.
	DecreaseBalance(tx *sql.Tx, accountID int64, amountMinor int64) error
}
