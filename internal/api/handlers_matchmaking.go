package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmetrik/gamehall/internal/games/dilemma"
	"github.com/dmetrik/gamehall/internal/services/settlement"
)

type joinRequest struct {
	Account int64 `json:"account"`
}

// JoinMatchmakingHandler handles POST /matchmaking/join.
func (h *HandlerProvider) JoinMatchmakingHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Account <= 0 {
		writeError(w, http.StatusBadRequest, "account: must be a positive account id")
		return
	}

	out, err := h.engine.JoinMatchmaking(r.Context(), req.Account)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

type choiceRequest struct {
	Account int64  `json:"account"`
	Choice  string `json:"choice"`
}

// SubmitChoiceHandler handles POST /matchmaking/{roundID}/choice. The request
// that completes the pair carries the settled deltas in its response.
func (h *HandlerProvider) SubmitChoiceHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req choiceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Account <= 0 {
		writeError(w, http.StatusBadRequest, "account: must be a positive account id")
		return
	}

	choice, err := dilemma.ParseChoice(req.Choice)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := h.engine.SubmitChoice(r.Context(), roundID, req.Account, choice)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// maxMatchWait caps how long a single long-poll request may hold a
// connection open.
const maxMatchWait = 30 * time.Second

// GetRoundHandler handles GET /matchmaking/{roundID}?account=N, the polling
// endpoint for a participant waiting on a match or a resolution. An optional
// wait_ms holds the request open until the round gains its second
// participant or the wait elapses.
func (h *HandlerProvider) GetRoundHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64)
	if err != nil || account <= 0 {
		writeError(w, http.StatusBadRequest, "account: must be a positive account id")
		return
	}

	var out settlement.RoundStatus
	if raw := r.URL.Query().Get("wait_ms"); raw != "" {
		ms, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || ms <= 0 {
			writeError(w, http.StatusBadRequest, "wait_ms: must be a positive integer")
			return
		}

		wait := min(time.Duration(ms)*time.Millisecond, maxMatchWait)
		out, err = h.engine.AwaitMatch(r.Context(), roundID, account, wait)
	} else {
		out, err = h.engine.Round(r.Context(), roundID, account)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
