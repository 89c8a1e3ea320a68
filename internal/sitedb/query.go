package sitedb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// DocumentSummary is the list view of a stored document.
type DocumentSummary struct {
	Path    string   `json:"path"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Public  bool     `json:"public"`
	Tags    []string `json:"tags"`
	Excerpt string   `json:"excerpt"`
	Failed  bool     `json:"failed,omitempty"`
}

// ListFilter narrows ListDocuments.
type ListFilter struct {
	Limit      int
	Offset     int
	Tag        string
	PublicOnly bool
}

// GraphNode is one document in the link graph.
type GraphNode struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// DiagnosticFilter narrows Diagnostics. Empty fields match everything.
type DiagnosticFilter struct {
	Kind         models.DiagnosticKind
	DocumentPath string
}

// LastBuild returns the stored build metadata or apperr.ErrNotFound when no
// build has been saved yet.
func (db *DB) LastBuild() (*BuildInfo, error) {
	var b BuildInfo
	err := db.conn.QueryRow(`SELECT id, generated_at, documents, failed, diagnostics FROM builds LIMIT 1`).
		Scan(&b.ID, &b.GeneratedAt, &b.Documents, &b.Failed, &b.Diagnostics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sitedb: last build: %w", err)
	}
	return &b, nil
}

// GetDocument returns the full record for slug.
func (db *DB) GetDocument(slug string) (*models.Record, error) {
	var (
		r                                 models.Record
		slugInfo, tags, fm, toc, headings string
	)
	err := db.conn.QueryRow(`
		SELECT path, slug, slug_info, title, public, tags, frontmatter, html, excerpt,
			plain_text, toc, headings, digest, failed, error, updated_at
		FROM documents WHERE slug = ?
	`, slug).Scan(&r.Path, &r.Slug, &slugInfo, &r.Title, &r.Public, &tags, &fm, &r.HTML, &r.Excerpt,
		&r.PlainText, &toc, &headings, &r.Digest, &r.Failed, &r.Error, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sitedb: get document: %w", err)
	}
	cols := []struct {
		raw  string
		dest any
	}{
		{slugInfo, &r.SlugInfo},
		{tags, &r.Tags},
		{fm, &r.Frontmatter},
		{toc, &r.TOC},
		{headings, &r.Headings},
	}
	for _, c := range cols {
		if err := json.Unmarshal([]byte(c.raw), c.dest); err != nil {
			return nil, fmt.Errorf("sitedb: decode document %s: %w", slug, err)
		}
	}

	links, err := db.outgoing(r.Slug)
	if err != nil {
		return nil, err
	}
	r.Links = links
	return &r, nil
}

func (db *DB) outgoing(slug string) ([]models.ResolvedLink, error) {
	rows, err := db.conn.Query(`SELECT target, uri, kind, text, broken FROM links WHERE source = ? ORDER BY rowid`, slug)
	if err != nil {
		return nil, fmt.Errorf("sitedb: links: %w", err)
	}
	defer rows.Close()

	var out []models.ResolvedLink
	for rows.Next() {
		var (
			l    models.ResolvedLink
			kind string
		)
		if err := rows.Scan(&l.TargetSlug, &l.URI, &kind, &l.Text, &l.Broken); err != nil {
			return nil, err
		}
		l.Kind = models.LinkKind(kind)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListDocuments returns a page of documents ordered by path and the total
// number of matching documents.
func (db *DB) ListDocuments(f ListFilter) ([]DocumentSummary, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var (
		where []string
		args  []any
	)
	if f.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`)
		args = append(args, f.Tag)
	}
	if f.PublicOnly {
		where = append(where, `public = 1`)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sitedb: count documents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT path, slug, title, public, tags, excerpt, failed FROM documents`+clause+
		` ORDER BY path LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sitedb: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var (
			s    DocumentSummary
			tags string
		)
		if err := rows.Scan(&s.Path, &s.Slug, &s.Title, &s.Public, &tags, &s.Excerpt, &s.Failed); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
			return nil, 0, fmt.Errorf("sitedb: decode tags of %s: %w", s.Path, err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Backlinks returns the slugs of documents that link to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target = ? AND source <> target ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("sitedb: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns every successfully built document and the resolved links
// between them.
func (db *DB) Graph() ([]GraphNode, []models.Edge, error) {
	rows, err := db.conn.Query(`SELECT slug, title FROM documents WHERE failed = 0 ORDER BY slug`)
	if err != nil {
		return nil, nil, fmt.Errorf("sitedb: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.Slug, &n.Title); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT source, target, kind FROM links
		WHERE broken = 0 AND target <> '' AND source <> target
		ORDER BY source, target, kind
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("sitedb: graph edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		var (
			e    models.Edge
			kind string
		)
		if err := rows.Scan(&e.Source, &e.Target, &kind); err != nil {
			return nil, nil, err
		}
		e.Kind = models.LinkKind(kind)
		edges = append(edges, e)
	}
	return nodes, edges, rows.Err()
}

// Diagnostics returns stored diagnostics ordered by document path.
func (db *DB) Diagnostics(f DiagnosticFilter) ([]models.Diagnostic, error) {
	rows, err := db.conn.Query(`
		SELECT document_path, kind, raw, resolved_as, detail FROM diagnostics
		WHERE (? = '' OR kind = ?) AND (? = '' OR document_path = ?)
		ORDER BY document_path, kind, raw
	`, string(f.Kind), string(f.Kind), f.DocumentPath, f.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("sitedb: diagnostics: %w", err)
	}
	defer rows.Close()

	var out []models.Diagnostic
	for rows.Next() {
		var (
			d    models.Diagnostic
			kind string
		)
		if err := rows.Scan(&d.DocumentPath, &kind, &d.Raw, &d.ResolvedAs, &d.Detail); err != nil {
			return nil, err
		}
		d.Kind = models.DiagnosticKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Media returns the stored media result for an asset path.
func (db *DB) Media(path string) (*models.MediaResult, error) {
	var (
		res           models.MediaResult
		typ, variants string
	)
	err := db.conn.QueryRow(`SELECT path, hash, type, variants FROM media WHERE path = ?`, path).
		Scan(&res.Path, &res.Hash, &typ, &variants)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media %q: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sitedb: media: %w", err)
	}
	res.Type = models.MediaType(typ)
	if err := json.Unmarshal([]byte(variants), &res.Variants); err != nil {
		return nil, fmt.Errorf("sitedb: decode media %s: %w", path, err)
	}
	return &res, nil
}
