package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
)

var (
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenAlreadyUsed     = errors.New("token already used")
	ErrTokenAccountMismatch = errors.New("token account mismatch")
)

// Token binds one account to one round of one game. It is consumed exactly
// once; consumption is never undone, even when a later settlement step fails.
type Token struct {
	ID         uuid.UUID
	AccountID  int64
	Game       games.Kind
	Params     games.RoundParams
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

type Tokens interface {
	Insert(ctx context.Context, tok Token) error

	// Consume atomically flips the token to consumed and returns it. It fails
	// with ErrTokenInvalid, ErrTokenExpired, ErrTokenAlreadyUsed, or
	// ErrTokenAccountMismatch; exactly one of N concurrent callers succeeds.
	Consume(ctx context.Context, tokenID uuid.UUID, accountID int64) (Token, error)

	Get(ctx context.Context, tokenID uuid.UUID) (Token, error)
}
