package tokens

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/infra/pgtestutil"
	"github.com/dmetrik/gamehall/internal/repos/tokens"
)

func seedAccount(t *testing.T, db *sql.DB, id int64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO accounts (id, display_name, role, balance)
		VALUES ($1, 'test account', 'player', 0)
	`, id)
	if err != nil {
		t.Fatalf("seed account %d: %v", id, err)
	}
}

func freshToken(accountID int64, ttl time.Duration) tokens.Token {
	now := time.Now()

	return tokens.Token{
		ID:        uuid.New(),
		AccountID: accountID,
		Game:      games.AlignEngine,
		Params:    games.RoundParams{BaseRewardMinor: 500, Target: 42, Precision: 3},
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestTokens_ConsumeHappyPath(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 1)

	tok := freshToken(1, time.Minute)
	if err := repo.Insert(context.Background(), tok); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.Consume(context.Background(), tok.ID, 1)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if got.ConsumedAt == nil {
		t.Error("consumed token has nil ConsumedAt")
	}
	if got.Params.Target != 42 || got.Params.Precision != 3 {
		t.Errorf("params = %+v, want embedded target 42 / precision 3", got.Params)
	}
	if got.Game != games.AlignEngine {
		t.Errorf("game = %q, want align_engine", got.Game)
	}
}

func TestTokens_ConsumeFailures(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 1)
	seedAccount(t, db, 2)

	used := freshToken(1, time.Minute)
	if err := repo.Insert(context.Background(), used); err != nil {
		t.Fatalf("insert used: %v", err)
	}
	if _, err := repo.Consume(context.Background(), used.ID, 1); err != nil {
		t.Fatalf("first consume: %v", err)
	}

	expired := freshToken(1, -time.Second)
	if err := repo.Insert(context.Background(), expired); err != nil {
		t.Fatalf("insert expired: %v", err)
	}

	foreign := freshToken(1, time.Minute)
	if err := repo.Insert(context.Background(), foreign); err != nil {
		t.Fatalf("insert foreign: %v", err)
	}

	tests := []struct {
		name    string
		tokenID uuid.UUID
		account int64
		wantErr error
	}{
		{name: "unknown token", tokenID: uuid.New(), account: 1, wantErr: tokens.ErrTokenInvalid},
		{name: "already used", tokenID: used.ID, account: 1, wantErr: tokens.ErrTokenAlreadyUsed},
		{name: "expired", tokenID: expired.ID, account: 1, wantErr: tokens.ErrTokenExpired},
		{name: "wrong account", tokenID: foreign.ID, account: 2, wantErr: tokens.ErrTokenAccountMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Consume(context.Background(), tc.tokenID, tc.account)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Consume error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// N concurrent consumers on one token: exactly one wins, the rest see
// ErrTokenAlreadyUsed.
func TestTokens_ConcurrentConsumeSingleWinner(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedAccount(t, db, 1)

	tok := freshToken(1, time.Minute)
	if err := repo.Insert(context.Background(), tok); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	const callers = 8

	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Consume(context.Background(), tok.ID, 1)
		}(i)
	}

	wg.Wait()

	var wins, replays int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, tokens.ErrTokenAlreadyUsed):
			replays++
		default:
			t.Errorf("unexpected consume error: %v", err)
		}
	}

	if wins != 1 || replays != callers-1 {
		t.Errorf("wins = %d, replays = %d, want 1 and %d", wins, replays, callers-1)
	}
}
