package devserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"patas/internal/platform/health"
	"patas/internal/platform/middleware"
)

// NewRouter wires the demo backend's endpoints with the shared middleware
// stack. The registry carries the server metrics and backs /metrics.
func NewRouter(h *Handler, logger *slog.Logger, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(h.observeLatency)

	health.New("dev").Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Post("/autenticacao/login", h.handleLogin)
	r.Put("/autenticacao/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/autenticacao/sessoes", h.handleSessions)

		r.Route("/v1/pets", func(r chi.Router) {
			r.Get("/", h.handleListPets)
			r.Post("/", h.handleCreatePet)
			r.Get("/{id}", h.handleGetPet)
			r.Put("/{id}", h.handleUpdatePet)
			r.Delete("/{id}", h.handleDeletePet)
			r.Post("/{id}/fotos", h.handleUploadPetPhoto)
			r.Get("/{id}/fotos/{fotoId}", h.handleGetPetPhoto)
			r.Delete("/{id}/fotos/{fotoId}", h.handleDeletePetPhoto)
		})

		r.Route("/v1/tutores", func(r chi.Router) {
			r.Get("/", h.handleListTutors)
			r.Post("/", h.handleCreateTutor)
			r.Get("/{id}", h.handleGetTutor)
			r.Put("/{id}", h.handleUpdateTutor)
			r.Delete("/{id}", h.handleDeleteTutor)
			r.Post("/{id}/pets/{petId}", h.handleLinkPet)
			r.Delete("/{id}/pets/{petId}", h.handleUnlinkPet)
			r.Post("/{id}/fotos", h.handleUploadTutorPhoto)
			r.Delete("/{id}/fotos/{fotoId}", h.handleDeleteTutorPhoto)
		})
	})

	return r
}

// observeLatency records per-route latency using the chi route pattern so
// path parameters don't explode label cardinality.
func (h *Handler) observeLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		h.metrics.EndpointLatency.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}
