package sitedb

import "github.com/starford/ansuz/internal/models"

// Store is the read/write surface of the build database.
// Consumers should depend on this interface rather than the concrete *DB type.
type Store interface {
	SaveManifest(m *models.Manifest) error
	LastBuild() (*BuildInfo, error)
	GetDocument(slug string) (*models.Record, error)
	ListDocuments(f ListFilter) ([]DocumentSummary, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	Graph() ([]GraphNode, []models.Edge, error)
	Diagnostics(f DiagnosticFilter) ([]models.Diagnostic, error)
	Media(path string) (*models.MediaResult, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
