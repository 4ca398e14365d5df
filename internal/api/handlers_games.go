package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListMachinesHandler handles GET /slots: the catalog in configuration order.
func (h *HandlerProvider) ListMachinesHandler(w http.ResponseWriter, r *http.Request) {
	type machineView struct {
		Key      string `json:"key"`
		Name     string `json:"name"`
		Theme    string `json:"theme,omitempty"`
		Reels    int    `json:"reels"`
		MinWager string `json:"min_wager"`
		MaxWager string `json:"max_wager"`
	}

	machines := h.machines.List()
	out := make([]machineView, 0, len(machines))

	for _, m := range machines {
		out = append(out, machineView{
			Key:      m.Key,
			Name:     m.Name,
			Theme:    m.Theme,
			Reels:    m.Reels,
			MinWager: formatAmount(m.MinWagerMinor),
			MaxWager: formatAmount(m.MaxWagerMinor),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"machines": out})
}

type wagerRequest struct {
	Account int64  `json:"account"`
	Wager   string `json:"wager"`
}

func parseWagerRequest(w http.ResponseWriter, r *http.Request) (wagerRequest, int64, bool) {
	var req wagerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, 0, false
	}

	if req.Account <= 0 {
		writeError(w, http.StatusBadRequest, "account: must be a positive account id")
		return req, 0, false
	}

	wager, err := parseAmountMinor(req.Wager)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, 0, false
	}

	return req, wager, true
}

// SpinHandler handles POST /slots/{machine}/spin.
func (h *HandlerProvider) SpinHandler(w http.ResponseWriter, r *http.Request) {
	machineKey := chi.URLParam(r, "machine")
	if machineKey == "" {
		writeError(w, http.StatusBadRequest, "missing machine")
		return
	}

	req, wager, ok := parseWagerRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine.Spin(r.Context(), req.Account, machineKey, wager)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// PlayBlackjackHandler handles POST /blackjack/play.
func (h *HandlerProvider) PlayBlackjackHandler(w http.ResponseWriter, r *http.Request) {
	req, wager, ok := parseWagerRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine.PlayBlackjack(r.Context(), req.Account, wager)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
