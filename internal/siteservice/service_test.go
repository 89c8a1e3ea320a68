package siteservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/build"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sitedb"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

func newTestService(t *testing.T, files map[string]string) (*Service, string, string) {
	t.Helper()
	vaultDir, vault := testutil.TestVault(t)
	testutil.WriteFiles(t, vaultDir, files)

	outDir := t.TempDir()
	out, err := storage.NewFS(outDir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b, err := build.New(build.DefaultOptions(), logger)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(Config{
		Builder: b,
		Vault:   vault,
		Output:  out,
		DB:      testutil.TestDB(t),
		Logger:  logger,
	})
	return svc, vaultDir, outDir
}

var sampleVault = map[string]string{
	"blog/index.md": "---\ntitle: Blog\ntags: [go]\npublic: true\n---\nSee [[Post]] and [[Missing]].\n",
	"Post.md":       "# Post\n\nBack to [the blog](blog/index.md). Parsers everywhere.\n",
}

func TestRebuild_WritesOutputAndDB(t *testing.T) {
	svc, _, outDir := newTestService(t, sampleVault)
	ctx := context.Background()

	m, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(m.Documents) != 2 {
		t.Fatalf("documents = %d", len(m.Documents))
	}
	if svc.Last() != m {
		t.Error("Last() should return the latest manifest")
	}

	for _, f := range []string{"blog.html", "post.html", build.ManifestFile, build.DiagnosticsFile, build.StylesFile} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(f))); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}

	info, err := svc.LastBuild(ctx)
	if err != nil {
		t.Fatalf("LastBuild: %v", err)
	}
	if info.ID != m.BuildID || info.Documents != 2 {
		t.Errorf("build info = %+v", info)
	}
}

func TestGetDocument_WithBacklinks(t *testing.T) {
	svc, _, _ := newTestService(t, sampleVault)
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.GetDocument(ctx, "post")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Title != "Post" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Backlinks) != 1 || doc.Backlinks[0] != "blog" {
		t.Errorf("backlinks = %v", doc.Backlinks)
	}

	if _, err := svc.GetDocument(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueries(t *testing.T) {
	svc, _, _ := newTestService(t, sampleVault)
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	items, total, err := svc.ListDocuments(ctx, sitedb.ListFilter{Tag: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].Slug != "blog" {
		t.Errorf("list = %+v total=%d", items, total)
	}

	res, err := svc.Search(ctx, "Parsers", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Slug != "post" {
		t.Errorf("search = %+v", res)
	}

	g, err := svc.Graph(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 2 {
		t.Errorf("graph = %+v", g)
	}

	diags, err := svc.Diagnostics(ctx, sitedb.DiagnosticFilter{Kind: models.DiagBrokenLink})
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 1 || diags[0].DocumentPath != "blog/index.md" {
		t.Errorf("diagnostics = %+v", diags)
	}

	empty, err := svc.Backlinks(ctx, "blog/nothing")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("backlinks = %v, %v", empty, err)
	}
}

func TestRebuild_PrunesRemovedDocuments(t *testing.T) {
	svc, vaultDir, outDir := newTestService(t, sampleVault)
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(vaultDir, "Post.md")); err != nil {
		t.Fatal(err)
	}
	m, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Documents) != 1 {
		t.Fatalf("documents = %d", len(m.Documents))
	}
	if _, err := os.Stat(filepath.Join(outDir, "post.html")); !os.IsNotExist(err) {
		t.Errorf("post.html should be pruned, stat err = %v", err)
	}
	if _, err := svc.GetDocument(ctx, "post"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("removed document still stored: %v", err)
	}
}
