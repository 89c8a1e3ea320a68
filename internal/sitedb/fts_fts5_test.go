//go:build sqlite_fts5

package sitedb

import (
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	m := &models.Manifest{
		BuildID:     "f1",
		GeneratedAt: time.Now(),
		Documents: []models.Record{{
			Path:      "fts.md",
			Slug:      "fts",
			Title:     "FTS Note",
			Tags:      []string{"search"},
			PlainText: "The compiler provides powerful full-text search capabilities.",
		}},
	}
	if err := db.SaveManifest(m); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "fts.md" {
		t.Errorf("path = %q", results[0].Path)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_FailedDocumentsNotIndexed(t *testing.T) {
	db := testDB(t)
	m := &models.Manifest{
		BuildID:     "f2",
		GeneratedAt: time.Now(),
		Documents: []models.Record{
			{Path: "bad.md", Slug: "bad", PlainText: "vanishing content", Failed: true},
		},
	}
	_ = db.SaveManifest(m)

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Errorf("failed document indexed: %+v", results)
	}
}

func TestFTS5_SaveReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.SaveManifest(&models.Manifest{BuildID: "1", GeneratedAt: now,
		Documents: []models.Record{{Path: "evo.md", Slug: "evo", Title: "Old", PlainText: "original text"}}})
	_ = db.SaveManifest(&models.Manifest{BuildID: "2", GeneratedAt: now,
		Documents: []models.Record{{Path: "evo.md", Slug: "evo", Title: "New", PlainText: "replacement text"}}})

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
