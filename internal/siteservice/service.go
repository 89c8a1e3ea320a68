// Package siteservice coordinates vault builds, output files and the build
// database behind one API shared by the HTTP server, the watcher and the MCP
// server.
package siteservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/build"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sitedb"
	"github.com/starford/ansuz/internal/storage"
)

// DocumentDetail is a stored record enriched with backlinks.
type DocumentDetail struct {
	models.Record
	Backlinks []string `json:"backlinks"`
}

// GraphView is the whole link graph.
type GraphView struct {
	Nodes []sitedb.GraphNode `json:"nodes"`
	Edges []models.Edge      `json:"edges"`
}

// Config holds the collaborators of a Service. Output and DB are optional.
type Config struct {
	Builder       *build.Builder
	Vault         storage.Provider
	Output        storage.Provider
	DB            sitedb.Store
	MediaManifest string
	Logger        *slog.Logger
}

// Service coordinates builds, output and database operations.
type Service struct {
	builder   *build.Builder
	vault     storage.Provider
	out       storage.Provider
	db        sitedb.Store
	mediaFile string
	logger    *slog.Logger

	mu   sync.Mutex
	last *models.Manifest
}

// NewService creates a new site service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		builder:   cfg.Builder,
		vault:     cfg.Vault,
		out:       cfg.Output,
		db:        cfg.DB,
		mediaFile: cfg.MediaManifest,
		logger:    logger,
	}
}

// Rebuild compiles the whole vault, writes the output tree, prunes pages of
// removed documents and replaces the stored build. Rebuilds are serialized.
func (s *Service) Rebuild(ctx context.Context) (*models.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	m, err := s.builder.Run(ctx, s.vault, s.mediaFile)
	if err != nil {
		return nil, err
	}

	if s.out != nil {
		if err := build.Write(m, s.out); err != nil {
			return nil, err
		}
		if err := build.WriteStyles(s.out, s.builder.Options().HighlightStyle); err != nil {
			return nil, err
		}
		if err := build.Prune(s.last, m, s.out); err != nil {
			return nil, err
		}
	}
	if s.db != nil {
		if err := s.db.SaveManifest(m); err != nil {
			return nil, fmt.Errorf("siteservice: save manifest: %w", err)
		}
	}
	s.last = m

	s.logger.Info("rebuild complete",
		slog.String("build_id", m.BuildID),
		slog.Int("documents", len(m.Documents)),
		slog.Int("failed", m.Failed()),
		slog.Int("diagnostics", len(m.Diagnostics)),
		slog.Duration("took", time.Since(start)))
	return m, nil
}

// Last returns the manifest of the most recent successful rebuild, or nil.
func (s *Service) Last() *models.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// LastBuild returns metadata of the stored build.
func (s *Service) LastBuild(_ context.Context) (*sitedb.BuildInfo, error) {
	return s.db.LastBuild()
}

// GetDocument returns the stored record for slug with its backlinks.
func (s *Service) GetDocument(_ context.Context, slug string) (*DocumentDetail, error) {
	rec, err := s.db.GetDocument(slug)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(slug)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Record: *rec, Backlinks: nonNilSlice(bl)}, nil
}

// ListDocuments returns a page of documents with optional filters.
func (s *Service) ListDocuments(_ context.Context, f sitedb.ListFilter) ([]sitedb.DocumentSummary, int, error) {
	items, total, err := s.db.ListDocuments(f)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Tags = nonNilSlice(items[i].Tags)
	}
	return nonNilSlice(items), total, nil
}

// Search delegates full-text search to the database.
func (s *Service) Search(_ context.Context, query string, limit int) ([]sitedb.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// Graph returns all nodes and edges for graph visualization.
func (s *Service) Graph(_ context.Context) (*GraphView, error) {
	nodes, edges, err := s.db.Graph()
	if err != nil {
		return nil, err
	}
	return &GraphView{Nodes: nonNilSlice(nodes), Edges: nonNilSlice(edges)}, nil
}

// Backlinks returns the slugs of documents linking to target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	bl, err := s.db.Backlinks(target)
	return nonNilSlice(bl), err
}

// Diagnostics returns stored diagnostics matching f.
func (s *Service) Diagnostics(_ context.Context, f sitedb.DiagnosticFilter) ([]models.Diagnostic, error) {
	d, err := s.db.Diagnostics(f)
	return nonNilSlice(d), err
}

// Media returns the publishing view of one asset.
func (s *Service) Media(_ context.Context, path string) (*models.MediaResult, error) {
	return s.db.Media(path)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
