package invoices

import "github.com/go-chi/chi/v5"

// MountRoutes attaches supplier and bulk-delete routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers/{supplierID}/invoices", h.ListBySupplier)
	r.Delete("/invoices", h.Delete)
	r.Delete("/invoices/office", h.DeleteOffice)
}

// MountCommunityRoutes attaches routes under /communities/{communityID}.
func (h *Handler) MountCommunityRoutes(r chi.Router) {
	r.Get("/invoices", h.ListByCommunity)
	r.Get("/invoices/export", h.Export)
}
