package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"
)

// The suite runs against a live stack (api + migrator with APP_ENV=DEV seed
// data): house account 1, players 2 and 3, merchant 4 with items 1-3.
const (
	baseURL   = "http://localhost:8080"
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

func TestE2E_BalanceAndTransfer(t *testing.T) {
	waitUntilReady(t)

	before2 := getBalanceMinor(t, 2)
	before3 := getBalanceMinor(t, 3)

	code, body := postJSON(t, "/accounts/2/transfer", map[string]any{
		"to": 3, "amount": "1.25",
	})
	if code != http.StatusOK {
		t.Fatalf("transfer: want 200, got %d (%s)", code, body)
	}

	if got := getBalanceMinor(t, 2); got != before2-125 {
		t.Fatalf("source balance: want %d, got %d", before2-125, got)
	}
	if got := getBalanceMinor(t, 3); got != before3+125 {
		t.Fatalf("dest balance: want %d, got %d", before3+125, got)
	}

	t.Run("self_transfer_rejected", func(t *testing.T) {
		code, _ := postJSON(t, "/accounts/2/transfer", map[string]any{"to": 2, "amount": "1.00"})
		if code != http.StatusBadRequest {
			t.Fatalf("self transfer: want 400, got %d", code)
		}
	})

	t.Run("three_decimals_rejected", func(t *testing.T) {
		code, _ := postJSON(t, "/accounts/2/transfer", map[string]any{"to": 3, "amount": "1.234"})
		if code != http.StatusBadRequest {
			t.Fatalf("precision: want 400, got %d", code)
		}
	})

	t.Run("unknown_account_404", func(t *testing.T) {
		code, _ := getRaw(t, "/accounts/999999/balance")
		if code != http.StatusNotFound {
			t.Fatalf("unknown account: want 404, got %d", code)
		}
	})
}

func TestE2E_TaskRoundLifecycle(t *testing.T) {
	waitUntilReady(t)

	token := openRound(t, 2, "reaction")

	before := getBalanceMinor(t, 2)

	code, body := postJSON(t, "/rounds/"+token+"/settle", map[string]any{
		"account": 2, "elapsed_ms": 200,
	})
	if code != http.StatusOK {
		t.Fatalf("settle: want 200, got %d (%s)", code, body)
	}

	var settled struct {
		PayoutMinor     int64  `json:"payout_minor"`
		Category        string `json:"category"`
		NewBalanceMinor int64  `json:"new_balance_minor"`
		Replayed        bool   `json:"replayed"`
	}
	mustDecode(t, body, &settled)

	if settled.PayoutMinor <= 0 {
		t.Fatalf("200ms reaction paid %d, want a positive band payout", settled.PayoutMinor)
	}
	if settled.NewBalanceMinor != before+settled.PayoutMinor {
		t.Fatalf("balance: want %d, got %d", before+settled.PayoutMinor, settled.NewBalanceMinor)
	}

	t.Run("retry_returns_recorded_outcome", func(t *testing.T) {
		code, body := postJSON(t, "/rounds/"+token+"/settle", map[string]any{
			"account": 2, "elapsed_ms": 200,
		})
		if code != http.StatusOK {
			t.Fatalf("retry: want 200, got %d (%s)", code, body)
		}

		var retry struct {
			PayoutMinor int64 `json:"payout_minor"`
			Replayed    bool  `json:"replayed"`
		}
		mustDecode(t, body, &retry)

		if !retry.Replayed {
			t.Fatal("retry not flagged as replayed")
		}
		if retry.PayoutMinor != settled.PayoutMinor {
			t.Fatalf("retry payout %d differs from %d", retry.PayoutMinor, settled.PayoutMinor)
		}
		if got := getBalanceMinor(t, 2); got != settled.NewBalanceMinor {
			t.Fatalf("balance moved on replay: %d vs %d", got, settled.NewBalanceMinor)
		}
	})

	t.Run("too_early_rejected_without_payout", func(t *testing.T) {
		token := openRound(t, 2, "reaction")
		before := getBalanceMinor(t, 2)

		code, body := postJSON(t, "/rounds/"+token+"/settle", map[string]any{
			"account": 2, "elapsed_ms": 10,
		})
		if code != http.StatusUnprocessableEntity {
			t.Fatalf("too early: want 422, got %d (%s)", code, body)
		}
		if got := getBalanceMinor(t, 2); got != before {
			t.Fatalf("balance moved on rejected round: %d vs %d", got, before)
		}
	})

	t.Run("implausible_elapsed_rejected", func(t *testing.T) {
		token := openRound(t, 2, "reaction")

		code, _ := postJSON(t, "/rounds/"+token+"/settle", map[string]any{
			"account": 2, "elapsed_ms": 3_600_000,
		})
		if code != http.StatusBadRequest {
			t.Fatalf("implausible elapsed: want 400, got %d", code)
		}
	})

	t.Run("wrong_account_forbidden", func(t *testing.T) {
		token := openRound(t, 2, "reaction")

		code, _ := postJSON(t, "/rounds/"+token+"/settle", map[string]any{
			"account": 3, "elapsed_ms": 200,
		})
		if code != http.StatusForbidden {
			t.Fatalf("wrong account: want 403, got %d", code)
		}
	})

	t.Run("wagered_games_issue_no_tokens", func(t *testing.T) {
		code, _ := postJSON(t, "/rounds", map[string]any{"account": 2, "game": "slots"})
		if code != http.StatusBadRequest {
			t.Fatalf("slots token: want 400, got %d", code)
		}
	})
}

func TestE2E_SlotsAndBlackjack(t *testing.T) {
	waitUntilReady(t)

	t.Run("spin_settles_delta", func(t *testing.T) {
		before := getBalanceMinor(t, 2)

		code, body := postJSON(t, "/slots/nova/spin", map[string]any{
			"account": 2, "wager": "1.00",
		})
		if code != http.StatusOK {
			t.Fatalf("spin: want 200, got %d (%s)", code, body)
		}

		var spin struct {
			TotalPayoutMinor int64 `json:"total_payout_minor"`
			PlayerDeltaMinor int64 `json:"player_delta_minor"`
			NewBalanceMinor  int64 `json:"new_balance_minor"`
		}
		mustDecode(t, body, &spin)

		if spin.PlayerDeltaMinor != spin.TotalPayoutMinor-100 {
			t.Fatalf("delta %d != payout %d - wager 100", spin.PlayerDeltaMinor, spin.TotalPayoutMinor)
		}
		if spin.NewBalanceMinor != before+spin.PlayerDeltaMinor {
			t.Fatalf("balance: want %d, got %d", before+spin.PlayerDeltaMinor, spin.NewBalanceMinor)
		}
	})

	t.Run("unknown_machine_404", func(t *testing.T) {
		code, _ := postJSON(t, "/slots/nonesuch/spin", map[string]any{"account": 2, "wager": "1.00"})
		if code != http.StatusNotFound {
			t.Fatalf("unknown machine: want 404, got %d", code)
		}
	})

	t.Run("blackjack_hand_settles_delta", func(t *testing.T) {
		before := getBalanceMinor(t, 3)

		code, body := postJSON(t, "/blackjack/play", map[string]any{
			"account": 3, "wager": "2.00",
		})
		if code != http.StatusOK {
			t.Fatalf("blackjack: want 200, got %d (%s)", code, body)
		}

		var hand struct {
			PlayerDeltaMinor int64 `json:"player_delta_minor"`
			NewBalanceMinor  int64 `json:"new_balance_minor"`
		}
		mustDecode(t, body, &hand)

		if hand.NewBalanceMinor != before+hand.PlayerDeltaMinor {
			t.Fatalf("balance: want %d, got %d", before+hand.PlayerDeltaMinor, hand.NewBalanceMinor)
		}
	})
}

func TestE2E_MatchmakingDilemma(t *testing.T) {
	waitUntilReady(t)

	code, body := postJSON(t, "/matchmaking/join", map[string]any{"account": 2})
	if code != http.StatusOK {
		t.Fatalf("join 2: want 200, got %d (%s)", code, body)
	}

	var joined struct {
		RoundID string `json:"round_id"`
		Status  string `json:"status"`
	}
	mustDecode(t, body, &joined)

	if joined.Status != "awaiting_second" {
		t.Fatalf("join 2 status = %q", joined.Status)
	}

	code, body = postJSON(t, "/matchmaking/join", map[string]any{"account": 3})
	if code != http.StatusOK {
		t.Fatalf("join 3: want 200, got %d (%s)", code, body)
	}

	var joined3 struct {
		RoundID string `json:"round_id"`
		Status  string `json:"status"`
	}
	mustDecode(t, body, &joined3)

	if joined3.RoundID != joined.RoundID {
		t.Fatalf("joiners landed in different rounds: %s vs %s", joined.RoundID, joined3.RoundID)
	}

	// A long-poll on an already-matched round returns without waiting out
	// the full window.
	code, body = getRaw(t, "/matchmaking/"+joined.RoundID+"?account=2&wait_ms=2000")
	if code != http.StatusOK {
		t.Fatalf("long-poll: want 200, got %d (%s)", code, body)
	}

	var awaited struct {
		Status string `json:"status"`
	}
	mustDecode(t, body, &awaited)

	if awaited.Status != "both_reserved" {
		t.Fatalf("long-poll status = %q, want both_reserved", awaited.Status)
	}

	before2 := getBalanceMinor(t, 2)
	before3 := getBalanceMinor(t, 3)

	code, body = postJSON(t, "/matchmaking/"+joined.RoundID+"/choice", map[string]any{
		"account": 2, "choice": "cooperate",
	})
	if code != http.StatusOK {
		t.Fatalf("choice 2: want 200, got %d (%s)", code, body)
	}

	code, body = postJSON(t, "/matchmaking/"+joined.RoundID+"/choice", map[string]any{
		"account": 3, "choice": "cooperate",
	})
	if code != http.StatusOK {
		t.Fatalf("choice 3: want 200, got %d (%s)", code, body)
	}

	var resolved struct {
		Status     string `json:"status"`
		DeltaMinor *int64 `json:"delta_minor"`
	}
	mustDecode(t, body, &resolved)

	if resolved.Status != "resolved" {
		t.Fatalf("second choice status = %q, want resolved", resolved.Status)
	}
	if resolved.DeltaMinor == nil || *resolved.DeltaMinor <= 0 {
		t.Fatalf("mutual cooperation delta = %v, want positive", resolved.DeltaMinor)
	}

	// Mutual cooperation pays both sides.
	if got := getBalanceMinor(t, 2); got <= before2 {
		t.Fatalf("cooperator 2 balance did not grow: %d vs %d", got, before2)
	}
	if got := getBalanceMinor(t, 3); got <= before3 {
		t.Fatalf("cooperator 3 balance did not grow: %d vs %d", got, before3)
	}

	t.Run("resolved_round_pollable", func(t *testing.T) {
		code, body := getRaw(t, "/matchmaking/"+joined.RoundID+"?account=2")
		if code != http.StatusOK {
			t.Fatalf("poll: want 200, got %d (%s)", code, body)
		}

		var status struct {
			Status     string `json:"status"`
			DeltaMinor *int64 `json:"delta_minor"`
		}
		mustDecode(t, body, &status)

		if status.Status != "resolved" || status.DeltaMinor == nil {
			t.Fatalf("poll after resolve = %+v", status)
		}
	})

	t.Run("double_choice_conflict", func(t *testing.T) {
		code, _ := postJSON(t, "/matchmaking/"+joined.RoundID+"/choice", map[string]any{
			"account": 2, "choice": "defect",
		})
		// The round left the pool on resolution; its entries remain the record.
		if code != http.StatusNotFound && code != http.StatusConflict {
			t.Fatalf("choice after resolve: want 404 or 409, got %d", code)
		}
	})
}

func TestE2E_ItemSalesMovePrices(t *testing.T) {
	waitUntilReady(t)

	priceBefore := getItemPriceMinor(t, 1)
	buyerBefore := getBalanceMinor(t, 2)
	merchantBefore := getBalanceMinor(t, 4)

	code, body := postJSON(t, "/items/1/sale", map[string]any{"buyer": 2, "quantity": 2})
	if code != http.StatusOK {
		t.Fatalf("sale: want 200, got %d (%s)", code, body)
	}

	var sale struct {
		Total           string `json:"total"`
		NewPrice        string `json:"new_price"`
		RemainingStock  int    `json:"remaining_stock"`
		BuyerBalance    string `json:"buyer_balance"`
		MerchantBalance string `json:"merchant_balance"`
	}
	mustDecode(t, body, &sale)

	total := mustParseMoney(t, sale.Total)
	if total != priceBefore*2 {
		t.Fatalf("total %d != listed price %d x2", total, priceBefore)
	}

	if got := getBalanceMinor(t, 2); got != buyerBefore-total {
		t.Fatalf("buyer balance: want %d, got %d", buyerBefore-total, got)
	}
	if got := getBalanceMinor(t, 4); got != merchantBefore+total {
		t.Fatalf("merchant balance: want %d, got %d", merchantBefore+total, got)
	}

	if newPrice := mustParseMoney(t, sale.NewPrice); newPrice < priceBefore {
		t.Fatalf("price dropped after a sale: %d -> %d", priceBefore, newPrice)
	}

	t.Run("merchant_cannot_buy_own_item", func(t *testing.T) {
		code, _ := postJSON(t, "/items/1/sale", map[string]any{"buyer": 4, "quantity": 1})
		if code != http.StatusBadRequest {
			t.Fatalf("own item: want 400, got %d", code)
		}
	})

	t.Run("unknown_item_404", func(t *testing.T) {
		code, _ := getRaw(t, "/items/999999/price")
		if code != http.StatusNotFound {
			t.Fatalf("unknown item: want 404, got %d", code)
		}
	})
}

/* -------------------- helpers -------------------- */

func getBalanceMinor(t *testing.T, accountID int64) int64 {
	t.Helper()

	code, body := getRaw(t, fmt.Sprintf("/accounts/%d/balance", accountID))
	if code != http.StatusOK {
		t.Fatalf("GET balance %d: want 200, got %d (%s)", accountID, code, body)
	}

	var payload struct {
		AccountID int64  `json:"account_id"`
		Balance   string `json:"balance"`
	}
	mustDecode(t, body, &payload)

	if payload.AccountID != accountID {
		t.Fatalf("account_id mismatch: want %d, got %d", accountID, payload.AccountID)
	}

	return mustParseMoney(t, payload.Balance)
}

func getItemPriceMinor(t *testing.T, itemID int64) int64 {
	t.Helper()

	code, body := getRaw(t, fmt.Sprintf("/items/%d/price", itemID))
	if code != http.StatusOK {
		t.Fatalf("GET price %d: want 200, got %d (%s)", itemID, code, body)
	}

	var payload struct {
		Price string `json:"price"`
	}
	mustDecode(t, body, &payload)

	return mustParseMoney(t, payload.Price)
}

func openRound(t *testing.T, accountID int64, game string) string {
	t.Helper()

	code, body := postJSON(t, "/rounds", map[string]any{"account": accountID, "game": game})
	if code != http.StatusCreated {
		t.Fatalf("open round: want 201, got %d (%s)", code, body)
	}

	var issued struct {
		TokenID string `json:"token_id"`
	}
	mustDecode(t, body, &issued)

	if issued.TokenID == "" {
		t.Fatal("open round returned no token")
	}

	return issued.TokenID
}

func getRaw(t *testing.T, path string) (int, string) {
	t.Helper()

	resp, err := httpClient.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(b)
}

func postJSON(t *testing.T, path string, payload map[string]any) (int, string) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := httpClient.Post(baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(b)
}

func mustDecode(t *testing.T, body string, v any) {
	t.Helper()

	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

// mustParseMoney converts "12.34" into minor units.
func mustParseMoney(t *testing.T, s string) int64 {
	t.Helper()

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) != 2 || len(parts[1]) != 2 {
		t.Fatalf("amount %q not in d.dd form", s)
	}

	ip, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Fatalf("amount %q: %v", s, err)
	}
	fp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		t.Fatalf("amount %q: %v", s, err)
	}

	minor := ip*100 + fp
	if neg {
		minor = -minor
	}

	return minor
}

// waitUntilReady blocks until GET /healthz responds or the deadline passes.
func waitUntilReady(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", baseURL, waitReady)
		case <-tick.C:
			resp, err := httpClient.Get(baseURL + "/healthz")
			if err != nil {
				continue
			}
			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}
