package api

import (
	"net/http"
)

// GetBalanceHandler handles GET /accounts/{accountID}/balance.
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, err := h.engine.Balance(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": accountID,
		"balance":    formatAmount(bal),
	})
}

type transferRequest struct {
	To     int64  `json:"to"`
	Amount string `json:"amount"`
}

// TransferHandler handles POST /accounts/{accountID}/transfer.
func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req transferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.To <= 0 {
		writeError(w, http.StatusBadRequest, "to: must be a positive account id")
		return
	}

	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.engine.Transfer(r.Context(), accountID, req.To, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transfer_id":    out.TransferID,
		"source_balance": formatAmount(out.SourceBalanceMinor),
		"dest_balance":   formatAmount(out.DestBalanceMinor),
	})
}
