// Package settlement is the engine's entry point: it validates round tokens,
// runs the matching resolver, and commits the resulting transfers through the
// ledger as one atomic batch.
package settlement

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/dmetrik/gamehall/internal/games/blackjack"
	"github.com/dmetrik/gamehall/internal/games/dilemma"
	"github.com/dmetrik/gamehall/internal/games/slots"
	"github.com/dmetrik/gamehall/internal/games/tasks"
	"github.com/dmetrik/gamehall/internal/matchmaking"
	"github.com/dmetrik/gamehall/internal/pricing"
	"github.com/dmetrik/gamehall/internal/repos/accounts"
	"github.com/dmetrik/gamehall/internal/repos/entries"
	"github.com/dmetrik/gamehall/internal/repos/items"
	"github.com/dmetrik/gamehall/internal/repos/tokens"
	"github.com/dmetrik/gamehall/internal/services/ledger"
)

var ErrInvalidInput = errors.New("invalid input")

// Ledger is the slice of the ledger service settlement drives.
type Ledger interface {
	Commit(ctx context.Context, batch ledger.Batch) (ledger.CommitResult, error)
	CommitTx(tx *sql.Tx, batch ledger.Batch) (ledger.CommitResult, error)
}

// Config is the process-wide settlement state, constructed once at startup
// rather than reached for as a singleton.
type Config struct {
	// HouseAccountID is the counterparty of every wager and payout.
	HouseAccountID int64
	TokenTTL       time.Duration
}

type Deps struct {
	DB       *sql.DB
	Ledger   Ledger
	Accounts accounts.Accounts
	Entries  entries.Entries
	Tokens   tokens.Tokens
	Items    items.Items

	Tasks     *tasks.Resolver
	Slots     *slots.Catalog
	Blackjack blackjack.Config
	Dilemma   dilemma.Config

	Pool    *matchmaking.Pool
	Pricing *pricing.Engine
	Damper  *pricing.Damper

	// Rand drives reel draws and card draws; inject a fixed source in tests.
	Rand *rand.Rand
}

type Service struct {
	cfg  Config
	deps Deps

	rngMu sync.Mutex
}

func New(cfg Config, deps Deps) *Service {
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Service{cfg: cfg, deps: deps}
}

// withRand serializes access to the shared rand source.
func (s *Service) withRand(fn func(rng *rand.Rand) error) error {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	return fn(s.deps.Rand)
}
