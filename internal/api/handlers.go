package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sitedb"
	"github.com/starford/ansuz/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *siteservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc, logger: slog.Default().With(slog.String("component", "api"))}
}

// wildcard extracts the trailing path parameter. Slugs contain slashes, and
// encoded slashes from OpenAPI clients (e.g. blog%2Fpost) are decoded.
func wildcard(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if errors.Is(err, apperr.ErrNotFound) {
		h.reject(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	h.logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	h.reject(w, http.StatusInternalServerError, "internal", "internal error")
}

// LastBuild handles GET /api/build.
//
//	@Summary		Describe the stored build
//	@Tags			build
//	@Produce		json
//	@Success		200	{object}	BuildResponse
//	@Failure		404	{object}	apiError
//	@Security		BearerAuth
//	@Router			/build [get]
func (h *Handler) LastBuild(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.LastBuild(r.Context())
	if err != nil {
		h.fail(w, "last build failed", err)
		return
	}
	h.respond(w, http.StatusOK, info)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			public	query		bool	false	"Only public documents"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	public, _ := strconv.ParseBool(q.Get("public"))

	items, total, err := h.svc.ListDocuments(r.Context(), sitedb.ListFilter{
		Limit:      limit,
		Offset:     offset,
		Tag:        q.Get("tag"),
		PublicOnly: public,
	})
	if err != nil {
		h.fail(w, "list documents failed", err)
		return
	}
	h.respond(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single rendered document by slug
//	@Tags			documents
//	@Produce		json
//	@Param			slug	path		string	true	"Document slug"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	apiError
//	@Security		BearerAuth
//	@Router			/documents/{slug} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	slug := wildcard(r)
	if slug == "" {
		h.reject(w, http.StatusBadRequest, "bad_request", "slug is required")
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), slug)
	if err != nil {
		h.fail(w, "get document failed", err, slog.String("slug", slug))
		return
	}
	h.respond(w, http.StatusOK, doc)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List documents linking to a slug
//	@Tags			graph
//	@Produce		json
//	@Param			slug	path		string	true	"Document slug"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{slug} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	slug := wildcard(r)
	if slug == "" {
		h.reject(w, http.StatusBadRequest, "bad_request", "slug is required")
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), slug)
	if err != nil {
		h.fail(w, "backlinks failed", err, slog.String("slug", slug))
		return
	}
	h.respond(w, http.StatusOK, BacklinksResponse{Slug: slug, Backlinks: bl})
}

// Media handles GET /api/media/*.
//
//	@Summary		Get the published variants of one media asset
//	@Tags			media
//	@Produce		json
//	@Param			path	path		string	true	"Asset path"
//	@Success		200		{object}	models.MediaResult
//	@Failure		404		{object}	apiError
//	@Security		BearerAuth
//	@Router			/media/{path} [get]
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	p := wildcard(r)
	if p == "" {
		h.reject(w, http.StatusBadRequest, "bad_request", "path is required")
		return
	}
	res, err := h.svc.Media(r.Context(), p)
	if err != nil {
		h.fail(w, "media lookup failed", err, slog.String("path", p))
		return
	}
	h.respond(w, http.StatusOK, res)
}

// Diagnostics handles GET /api/diagnostics.
//
//	@Summary		List build diagnostics
//	@Tags			build
//	@Produce		json
//	@Param			kind	query		string	false	"Diagnostic kind"	Enums(broken-link, missing-media, malformed-frontmatter, document-failed)
//	@Param			path	query		string	false	"Document path"
//	@Success		200		{object}	DiagnosticsResponse
//	@Security		BearerAuth
//	@Router			/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	diags, err := h.svc.Diagnostics(r.Context(), sitedb.DiagnosticFilter{
		Kind:         models.DiagnosticKind(q.Get("kind")),
		DocumentPath: q.Get("path"),
	})
	if err != nil {
		h.fail(w, "diagnostics failed", err)
		return
	}
	h.respond(w, http.StatusOK, DiagnosticsResponse{Diagnostics: diags})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across rendered documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	apiError
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.reject(w, http.StatusBadRequest, "bad_request", "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.fail(w, "search failed", err, slog.String("query", q))
		return
	}
	h.respond(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the vault link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph(r.Context())
	if err != nil {
		h.fail(w, "graph failed", err)
		return
	}
	h.respond(w, http.StatusOK, g)
}
