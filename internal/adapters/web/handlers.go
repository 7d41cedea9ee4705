package web

import (
	"log/slog"
	"net/http"

	"marketplace-orders/internal/app"
	"marketplace-orders/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler serves the HTTP API on top of an ApplicationService.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewHandler creates and wires the chi router with all routes.
// m may be nil, in which case /metrics is not served.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, jwtSecret string, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		logger:    logger,
		metrics:   m,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger, m))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// ── Health & metrics (public) ─────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// ── Shopper API (identity optional; the policy decides) ──────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Get("/api/auth/me", h.me)

		r.Delete("/api/line_items", h.missingLineItemID)
		r.Delete("/api/line_items/{id}", h.destroyLineItem)
		r.Get("/api/line_items/bought", h.boughtLineItems)

		// ── Maintenance (admin) ───────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Post("/api/orders/{id}/recalculate", h.recalculateOrder)
		})
	})

	return r
}

// health reports service status and database reachability.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}

	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check: database unreachable", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeBody(w, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}
