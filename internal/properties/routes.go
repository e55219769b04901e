package properties

import "github.com/go-chi/chi/v5"

// MountRoutes attaches property routes under /communities/{communityID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/properties", h.List)
}
