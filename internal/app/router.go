package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/llauna/administracionFincas-sub000/internal/distribution"
	"github.com/llauna/administracionFincas-sub000/internal/invoices"
	"github.com/llauna/administracionFincas-sub000/internal/observability"
	"github.com/llauna/administracionFincas-sub000/internal/properties"
	"github.com/llauna/administracionFincas-sub000/internal/treasury"
	"github.com/llauna/administracionFincas-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	PropertiesHandler   *properties.Handler
	InvoicesHandler     *invoices.Handler
	DistributionHandler *distribution.Handler
	TreasuryHandler     *treasury.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/communities/{communityID}", func(r chi.Router) {
		if params.PropertiesHandler != nil {
			params.PropertiesHandler.MountRoutes(r)
		}
		if params.InvoicesHandler != nil {
			params.InvoicesHandler.MountCommunityRoutes(r)
		}
	})
	if params.InvoicesHandler != nil {
		params.InvoicesHandler.MountRoutes(r)
	}
	if params.DistributionHandler != nil {
		params.DistributionHandler.MountRoutes(r)
	}
	if params.TreasuryHandler != nil {
		r.Route("/treasury", params.TreasuryHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
