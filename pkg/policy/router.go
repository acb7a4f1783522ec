package policy

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the policy search API.
func Router(searcher Searcher, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	searchHandler := SearchHandler(searcher, logger)
	r.Get("/search", searchHandler)
	r.Post("/search", searchHandler)

	return r
}
