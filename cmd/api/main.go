package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmetrik/gamehall/internal/api"
	"github.com/dmetrik/gamehall/internal/config"
	"github.com/dmetrik/gamehall/internal/games/slots"
	"github.com/dmetrik/gamehall/internal/games/tasks"
	"github.com/dmetrik/gamehall/internal/infra/logging"
	"github.com/dmetrik/gamehall/internal/infra/pgutils"
	"github.com/dmetrik/gamehall/internal/matchmaking"
	"github.com/dmetrik/gamehall/internal/pricing"
	accountspg "github.com/dmetrik/gamehall/internal/repos/accounts/postgres"
	entriespg "github.com/dmetrik/gamehall/internal/repos/entries/postgres"
	itemspg "github.com/dmetrik/gamehall/internal/repos/items/postgres"
	tokenspg "github.com/dmetrik/gamehall/internal/repos/tokens/postgres"
	"github.com/dmetrik/gamehall/internal/services/ledger"
	"github.com/dmetrik/gamehall/internal/services/settlement"
	"github.com/dmetrik/gamehall/pkg/envconf"
	"github.com/dmetrik/gamehall/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON("api", cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	shutdownqueue.Add("close db", func(context.Context) error {
		return db.Close()
	})

	// --- Game content ---
	content, err := config.LoadContent(cfg.ContentPath)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	catalog, err := slots.NewCatalog(content.Slots)
	if err != nil {
		return fmt.Errorf("build slot catalog: %w", err)
	}

	// --- Repos and services ---
	accountsRepo := accountspg.New(db)
	entriesRepo := entriespg.New(db)
	tokensRepo := tokenspg.New(db)
	itemsRepo := itemspg.New(db)

	ledgerSrv := ledger.New(db, accountsRepo, entriesRepo)

	pool := matchmaking.NewPool(matchmaking.Config{
		MatchWait:     cfg.Engine.MatchWait,
		ChoiceWait:    cfg.Engine.ChoiceWait,
		SweepInterval: cfg.Engine.SweepInterval,
	})
	shutdownqueue.Add("matchmaking pool", func(context.Context) error {
		pool.Stop()
		return nil
	})

	engine := settlement.New(
		settlement.Config{
			HouseAccountID: cfg.Engine.HouseAccountID,
			TokenTTL:       cfg.Engine.TokenTTL,
		},
		settlement.Deps{
			DB:        db,
			Ledger:    ledgerSrv,
			Accounts:  accountsRepo,
			Entries:   entriesRepo,
			Tokens:    tokensRepo,
			Items:     itemsRepo,
			Tasks:     tasks.NewResolver(content.Tasks),
			Slots:     catalog,
			Blackjack: content.Blackjack,
			Dilemma:   content.Dilemma,
			Pool:      pool,
			Pricing:   pricing.NewEngine(content.Pricing, itemsRepo),
			Damper:    pricing.NewDamper(content.Damper),
			Rand:      rand.New(rand.NewSource(cryptoSeed())),
		},
	)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, engine, catalog)

	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

// cryptoSeed draws the reel/card seed from the OS entropy source; a clock
// seed would make draws guessable from the process start time.
func cryptoSeed() int64 {
	var raw [8]byte
	if _, err := crand.Read(raw[:]); err != nil {
		panic(fmt.Sprintf("read entropy: %v", err))
	}

	return int64(binary.LittleEndian.Uint64(raw[:]))
}
