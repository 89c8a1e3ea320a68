package api

import (
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sitedb"
	"github.com/starford/ansuz/internal/siteservice"
)

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = siteservice.DocumentDetail

// DocumentSummary is a lightweight item in a list response (aliased from the storage layer).
type DocumentSummary = sitedb.DocumentSummary

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = sitedb.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the vault link graph.
type GraphResponse = siteservice.GraphView

// BacklinksResponse lists documents that link to a slug.
type BacklinksResponse struct {
	Slug      string   `json:"slug" example:"blog" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// DiagnosticsResponse wraps build diagnostics.
type DiagnosticsResponse struct {
	Diagnostics []models.Diagnostic `json:"diagnostics" validate:"required"`
}

// BuildResponse describes the stored build.
type BuildResponse = sitedb.BuildInfo
