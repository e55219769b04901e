package treasury

import "github.com/go-chi/chi/v5"

// MountRoutes attaches treasury routes under /treasury.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Post("/accounts", h.CreateAccount)
	r.Post("/accounts/{kind}/{accountID}/adjust", h.Adjust)
	r.Post("/accounts/{kind}/{accountID}/delta", h.Delta)
	r.Post("/movements", h.RegisterMovement)
	r.Post("/transfers", h.Transfer)
	r.Post("/integrity-check", h.IntegrityCheck)
}
