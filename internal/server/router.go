package server

import (
	"net/http"

	"github.com/cyberstreams/intelcore/internal/api"
	"github.com/cyberstreams/intelcore/internal/api/handlers"
	"github.com/cyberstreams/intelcore/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	IntelHandler *handlers.IntelHandler
	IntelService handlers.IntelService
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "vector_store": "ok"}
		if cfg.IntelService != nil && !cfg.IntelService.Health(r.Context()) {
			status["vector_store"] = "unreachable"
			api.JSON(w, http.StatusServiceUnavailable, api.SuccessResponse{Data: status})
			return
		}
		api.Success(w, http.StatusOK, status)
	})

	r.Route("/intel", func(r chi.Router) {
		r.Post("/search", cfg.IntelHandler.Search)
		r.Post("/expand", cfg.IntelHandler.Expand)
		r.Get("/{id}", cfg.IntelHandler.Get)
		r.Delete("/", cfg.IntelHandler.Delete)
	})

	return r
}
