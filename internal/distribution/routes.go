package distribution

import "github.com/go-chi/chi/v5"

// MountRoutes attaches expense distribution endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/expenses", h.Distribute)
	r.Post("/expenses/recalculate", h.Recalculate)
}
