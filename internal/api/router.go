package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmetrik/gamehall/internal/games/slots"
)

// NewRouter constructs the router with all API endpoints registered.
func NewRouter(engine Engine, machines *slots.Catalog) http.Handler {
	h := NewHandler(engine, machines)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/accounts/{accountID}/balance", h.GetBalanceHandler)
	r.Post("/accounts/{accountID}/transfer", h.TransferHandler)

	r.Post("/rounds", h.OpenRoundHandler)
	r.Post("/rounds/{tokenID}/settle", h.SettleRoundHandler)

	r.Get("/slots", h.ListMachinesHandler)
	r.Post("/slots/{machine}/spin", h.SpinHandler)
	r.Post("/blackjack/play", h.PlayBlackjackHandler)

	r.Post("/matchmaking/join", h.JoinMatchmakingHandler)
	r.Post("/matchmaking/{roundID}/choice", h.SubmitChoiceHandler)
	r.Get("/matchmaking/{roundID}", h.GetRoundHandler)

	r.Post("/items/{itemID}/sale", h.RecordSaleHandler)
	r.Get("/items/{itemID}/price", h.GetItemPriceHandler)

	return r
}
