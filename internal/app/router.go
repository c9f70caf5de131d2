package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the base chi router with the shared middleware chain.
// Domain packages mount their own routes on top of it.
func NewRouter(cfg MiddlewareConfig) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(cfg) {
		r.Use(mw)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}
