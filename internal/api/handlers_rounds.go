package api

import (
	"net/http"

	"github.com/dmetrik/gamehall/internal/games"
)

type openRoundRequest struct {
	Account int64  `json:"account"`
	Game    string `json:"game"`
}

// OpenRoundHandler handles POST /rounds: it issues a single-use token for a
// task round with the round's parameters fixed server-side.
func (h *HandlerProvider) OpenRoundHandler(w http.ResponseWriter, r *http.Request) {
	var req openRoundRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Account <= 0 {
		writeError(w, http.StatusBadRequest, "account: must be a positive account id")
		return
	}

	kind, err := games.ParseKind(req.Game)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	issued, err := h.engine.IssueRoundToken(r.Context(), req.Account, kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, issued)
}

type settleRoundRequest struct {
	Account    int64   `json:"account"`
	ElapsedMS  int64   `json:"elapsed_ms,omitempty"`
	DurationMS int64   `json:"duration_ms,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Answer     int64   `json:"answer,omitempty"`
}

// SettleRoundHandler handles POST /rounds/{tokenID}/settle.
func (h *HandlerProvider) SettleRoundHandler(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathUUID(r, "tokenID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req settleRoundRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Account <= 0 {
		writeError(w, http.StatusBadRequest, "account: must be a positive account id")
		return
	}

	sub := games.Submission{
		ElapsedMS:  req.ElapsedMS,
		DurationMS: req.DurationMS,
		Value:      req.Value,
		Answer:     req.Answer,
	}

	settled, err := h.engine.SettleRound(r.Context(), tokenID, req.Account, sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settled)
}
