package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumbung-erp/lumbung-erp/internal/dashboard"
	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/movement"
	"github.com/lumbung-erp/lumbung-erp/internal/observability"
	"github.com/lumbung-erp/lumbung-erp/internal/preorder"
	"github.com/lumbung-erp/lumbung-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	InventoryHandler *inventory.Handler
	MovementHandler  *movement.Handler
	PreOrderHandler  *preorder.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		params.MovementHandler.MountRoutes(r)
		r.Route("/pre-orders", params.PreOrderHandler.MountRoutes)
		r.Route("/approvals", params.PreOrderHandler.MountApprovalRoutes)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
