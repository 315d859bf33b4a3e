// internal/app/features/api/routes.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Routes returns the /api subrouter. mw runs before the handler, in order
// (rate limiting, principal loading).
func Routes(h *Handler, allowedOrigins []string, mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(mw...)
	r.Post("/", h.Serve)
	return r
}
