package tokens

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/repos/tokens"
)

var _ tokens.Tokens = (*tokensRepo)(nil)

type tokensRepo struct{ db *sql.DB }

func New(db *sql.DB) *tokensRepo {
	return &tokensRepo{db: db}
}

func (r *tokensRepo) Insert(ctx context.Context, tok tokens.Token) error {
	params, err := json.Marshal(tok.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO round_tokens (id, account_id, game, params, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tok.ID, tok.AccountID, tok.Game, params, tok.IssuedAt, tok.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// Consume is a single compare-and-set: only a live, unconsumed token owned by
// the caller flips. Zero rows affected triggers a follow-up read that
// discriminates which precondition failed.
func (r *tokensRepo) Consume(ctx context.Context, tokenID uuid.UUID, accountID int64) (tokens.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE round_tokens
		SET consumed_at = now()
		WHERE id = $1
		  AND account_id = $2
		  AND consumed_at IS NULL
		  AND expires_at > now()
		RETURNING id, account_id, game, params, issued_at, expires_at, consumed_at
	`, tokenID, accountID)

	tok, err := scanToken(row)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return tokens.Token{}, fmt.Errorf("consume token: %w", err)
	}

	existing, err := r.Get(ctx, tokenID)
	if err != nil {
		return tokens.Token{}, err
	}

	switch {
	case existing.AccountID != accountID:
		return tokens.Token{}, tokens.ErrTokenAccountMismatch
	case existing.ConsumedAt != nil:
		return tokens.Token{}, tokens.ErrTokenAlreadyUsed
	case !existing.ExpiresAt.After(time.Now()):
		return tokens.Token{}, tokens.ErrTokenExpired
	default:
		// The CAS lost a race it should have won; report the current state.
		return tokens.Token{}, tokens.ErrTokenInvalid
	}
}

func (r *tokensRepo) Get(ctx context.Context, tokenID uuid.UUID) (tokens.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, game, params, issued_at, expires_at, consumed_at
		FROM round_tokens
		WHERE id = $1
	`, tokenID)

	tok, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tokens.Token{}, tokens.ErrTokenInvalid
		}

		return tokens.Token{}, fmt.Errorf("get token: %w", err)
	}

	return tok, nil
}

func scanToken(row *sql.Row) (tokens.Token, error) {
	var (
		tok      tokens.Token
		game     string
		rawParam []byte
		consumed sql.NullTime
	)

	err := row.Scan(&tok.ID, &tok.AccountID, &game, &rawParam, &tok.IssuedAt, &tok.ExpiresAt, &consumed)
	if err != nil {
		return tokens.Token{}, err
	}

	tok.Game = games.Kind(game)

	if err := json.Unmarshal(rawParam, &tok.Params); err != nil {
		return tokens.Token{}, fmt.Errorf("unmarshal params: %w", err)
	}

	if consumed.Valid {
		tok.ConsumedAt = &consumed.Time
	}

	return tok, nil
}
