package sitedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string `json:"slug"`
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// BuildInfo describes the build currently stored in the database.
type BuildInfo struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Documents   int       `json:"documents"`
	Failed      int       `json:"failed"`
	Diagnostics int       `json:"diagnostics"`
}

// SaveManifest replaces the stored build with m inside a single transaction.
// Readers never observe a mix of two builds.
func (db *DB) SaveManifest(m *models.Manifest) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("sitedb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"builds", "documents", "links", "diagnostics", "media"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("sitedb: clear %s: %w", table, err)
		}
	}
	if err := ftsReset(tx); err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO builds (id, generated_at, documents, failed, diagnostics) VALUES (?, ?, ?, ?, ?)`,
		m.BuildID, m.GeneratedAt.UTC(), len(m.Documents), m.Failed(), len(m.Diagnostics))
	if err != nil {
		return fmt.Errorf("sitedb: insert build: %w", err)
	}

	for i := range m.Documents {
		if err := insertRecord(tx, &m.Documents[i]); err != nil {
			return err
		}
	}
	if err := insertDiagnostics(tx, m.Diagnostics); err != nil {
		return err
	}
	if err := insertMedia(tx, m.Media); err != nil {
		return err
	}

	return tx.Commit()
}

func insertRecord(tx *sql.Tx, r *models.Record) error {
	cols, err := encodeColumns(r.SlugInfo, nonNil(r.Tags), r.Frontmatter, nonNil(r.TOC), nonNil(r.Headings))
	if err != nil {
		return fmt.Errorf("sitedb: encode document %s: %w", r.Path, err)
	}
	slugInfo, tags, fm, toc, headings := cols[0], cols[1], cols[2], cols[3], cols[4]

	_, err = tx.Exec(`
		INSERT INTO documents (path, slug, slug_info, title, public, tags, frontmatter, html,
			excerpt, plain_text, toc, headings, digest, failed, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Path, r.Slug, slugInfo, r.Title, r.Public, tags, fm, r.HTML,
		r.Excerpt, r.PlainText, toc, headings, r.Digest, r.Failed, r.Error, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("sitedb: insert document %s: %w", r.Path, err)
	}

	if !r.Failed {
		if err := ftsInsert(tx, r.Slug, r.Title, r.PlainText, r.Tags); err != nil {
			return err
		}
	}

	if len(r.Links) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, uri, kind, text, broken) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sitedb: prepare link insert: %w", err)
	}
	defer stmt.Close()
	for _, l := range r.Links {
		if _, err := stmt.Exec(r.Slug, l.TargetSlug, l.URI, string(l.Kind), l.Text, l.Broken); err != nil {
			return fmt.Errorf("sitedb: insert link: %w", err)
		}
	}
	return nil
}

func insertDiagnostics(tx *sql.Tx, diags []models.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO diagnostics (document_path, kind, raw, resolved_as, detail) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sitedb: prepare diagnostic insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range diags {
		if _, err := stmt.Exec(d.DocumentPath, string(d.Kind), d.Raw, d.ResolvedAs, d.Detail); err != nil {
			return fmt.Errorf("sitedb: insert diagnostic: %w", err)
		}
	}
	return nil
}

func insertMedia(tx *sql.Tx, media map[string]models.MediaResult) error {
	if len(media) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO media (path, hash, type, variants) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sitedb: prepare media insert: %w", err)
	}
	defer stmt.Close()
	for p, res := range media {
		variants, err := json.Marshal(res.Variants)
		if err != nil {
			return fmt.Errorf("sitedb: encode media %s: %w", p, err)
		}
		if _, err := stmt.Exec(p, res.Hash, string(res.Type), string(variants)); err != nil {
			return fmt.Errorf("sitedb: insert media: %w", err)
		}
	}
	return nil
}

// encodeColumns marshals each value to a JSON text column.
func encodeColumns(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
