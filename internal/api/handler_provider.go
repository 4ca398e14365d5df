package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games"
	"github.com/dmetrik/gamehall/internal/games/blackjack"
	"github.com/dmetrik/gamehall/internal/games/dilemma"
	"github.com/dmetrik/gamehall/internal/games/slots"
	"github.com/dmetrik/gamehall/internal/matchmaking"
	"github.com/dmetrik/gamehall/internal/repos/accounts"
	"github.com/dmetrik/gamehall/internal/repos/items"
	"github.com/dmetrik/gamehall/internal/repos/tokens"
	"github.com/dmetrik/gamehall/internal/services/ledger"
	"github.com/dmetrik/gamehall/internal/services/settlement"
)

// maxBodyBytes caps request bodies; every payload here is a few fields.
const maxBodyBytes = 1 << 20

// Engine is the slice of the settlement service the HTTP layer drives.
type Engine interface {
	Balance(ctx context.Context, account int64) (int64, error)
	Transfer(ctx context.Context, from, to, amountMinor int64) (settlement.TransferOutcome, error)

	IssueRoundToken(ctx context.Context, account int64, kind games.Kind) (settlement.IssuedToken, error)
	SettleRound(ctx context.Context, tokenID uuid.UUID, account int64, sub games.Submission) (settlement.RoundSettlement, error)

	Spin(ctx context.Context, account int64, machineKey string, wagerMinor int64) (settlement.SpinOutcome, error)
	PlayBlackjack(ctx context.Context, account int64, wagerMinor int64) (settlement.BlackjackOutcome, error)

	JoinMatchmaking(ctx context.Context, account int64) (settlement.JoinOutcome, error)
	SubmitChoice(ctx context.Context, roundID uuid.UUID, account int64, choice dilemma.Choice) (settlement.ChoiceOutcome, error)
	Round(ctx context.Context, roundID uuid.UUID, account int64) (settlement.RoundStatus, error)
	AwaitMatch(ctx context.Context, roundID uuid.UUID, account int64, wait time.Duration) (settlement.RoundStatus, error)

	RecordSale(ctx context.Context, itemID, buyer int64, quantity int) (settlement.SaleOutcome, error)
	ItemPrice(ctx context.Context, itemID int64) (int64, error)
}

// HandlerProvider wraps the settlement engine and exposes HTTP handlers.
type HandlerProvider struct {
	engine   Engine
	machines *slots.Catalog
}

// NewHandler returns a new handler provider.
func NewHandler(engine Engine, machines *slots.Catalog) *HandlerProvider {
	return &HandlerProvider{engine: engine, machines: machines}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps sentinel errors onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept server-side.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrInvalidInput),
		errors.Is(err, games.ErrInvalidSubmission),
		errors.Is(err, dilemma.ErrInvalidChoice),
		errors.Is(err, slots.ErrInvalidWager),
		errors.Is(err, blackjack.ErrInvalidWager),
		errors.Is(err, ledger.ErrInvalidSpec),
		errors.Is(err, ledger.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, tokens.ErrTokenAccountMismatch),
		errors.Is(err, matchmaking.ErrNotParticipant):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, accounts.ErrAccountNotFound),
		errors.Is(err, items.ErrItemNotFound),
		errors.Is(err, tokens.ErrTokenInvalid),
		errors.Is(err, slots.ErrUnknownMachine),
		errors.Is(err, games.ErrUnknownKind),
		errors.Is(err, matchmaking.ErrRoundNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, tokens.ErrTokenAlreadyUsed),
		errors.Is(err, matchmaking.ErrChoiceAlreadySubmitted),
		errors.Is(err, matchmaking.ErrRoundResolved),
		errors.Is(err, matchmaking.ErrChoicesPending),
		errors.Is(err, items.ErrOutOfStock):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, tokens.ErrTokenExpired),
		errors.Is(err, matchmaking.ErrRoundExpired),
		errors.Is(err, matchmaking.ErrPoolClosed):
		writeError(w, http.StatusGone, err.Error())

	case errors.Is(err, games.ErrTooEarly),
		errors.Is(err, games.ErrPrecisionNotMet):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		slog.Error("unhandled error in request", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s", name)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}

	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s", name)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}

	return id, nil
}

// parseAmountMinor converts a decimal string with up to 2 fractional digits
// into minor units.
func parseAmountMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount required")
	}
	neg := false
	if s[0] == '+' {
		s = s[1:]
	}
	if s != "" && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid amount")
	}

	intPart := parts[0]
	frac := "00"
	if len(parts) == 2 {
		if len(parts[1]) > 2 {
			return 0, fmt.Errorf("amount supports up to 2 decimals")
		}
		frac = parts[1] + strings.Repeat("0", 2-len(parts[1]))
	}

	ip, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount integer")
	}
	fp, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount fractional")
	}

	total := ip*100 + fp
	if neg {
		total = -total
	}
	if total <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}

	return total, nil
}

// formatAmount renders minor units as a decimal string with 2 digits.
func formatAmount(minor int64) string {
	neg := ""
	if minor < 0 {
		neg = "-"
		minor = -minor
	}

	return fmt.Sprintf("%s%d.%02d", neg, minor/100, minor%100)
}
