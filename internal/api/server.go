package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmetrik/gamehall/internal/games/slots"
)

// NewServer creates and returns a configured *http.Server for the engine API.
func NewServer(port uint16, engine Engine, machines *slots.Catalog) *http.Server {
	mux := NewRouter(engine, machines)

	addr := fmt.Sprintf(":%d", port)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
