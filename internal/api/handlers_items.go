package api

import (
	"net/http"
)

type saleRequest struct {
	Buyer    int64 `json:"buyer"`
	Quantity int   `json:"quantity"`
}

// RecordSaleHandler handles POST /items/{itemID}/sale.
func (h *HandlerProvider) RecordSaleHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req saleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Buyer <= 0 {
		writeError(w, http.StatusBadRequest, "buyer: must be a positive account id")
		return
	}

	out, err := h.engine.RecordSale(r.Context(), itemID, req.Buyer, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sale_id":          out.SaleID,
		"item_id":          out.ItemID,
		"quantity":         out.Quantity,
		"total":            formatAmount(out.TotalMinor),
		"new_price":        formatAmount(out.NewPriceMinor),
		"remaining_stock":  out.RemainingStock,
		"buyer_balance":    formatAmount(out.BuyerBalance),
		"merchant_balance": formatAmount(out.MerchantBalance),
	})
}

// GetItemPriceHandler handles GET /items/{itemID}/price, the listed price
// with idle decay applied.
func (h *HandlerProvider) GetItemPriceHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, err := h.engine.ItemPrice(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item_id": itemID,
		"price":   formatAmount(price),
	})
}
