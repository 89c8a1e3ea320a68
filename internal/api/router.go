// Package api serves the stored build over a read-only chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/siteservice"
)

// NewRouter mounts the API routes. With authEnabled every route, the event
// stream included, requires token.
func NewRouter(svc *siteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if authEnabled {
			r.Use(h.requireToken(token, false))
		}
		r.Get("/build", h.LastBuild)
		r.Get("/documents", h.ListDocuments)
		r.Get("/documents/*", h.GetDocument)
		r.Get("/backlinks/*", h.Backlinks)
		r.Get("/media/*", h.Media)
		r.Get("/diagnostics", h.Diagnostics)
		r.Get("/search", h.Search)
		r.Get("/graph", h.Graph)
	})

	if sseHandler != nil {
		r.Group(func(r chi.Router) {
			if authEnabled {
				r.Use(h.requireToken(token, true))
			}
			r.Get("/events", sseHandler.ServeHTTP)
		})
	}

	return r
}
