package vault

import (
	"errors"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/diag"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/slug"
	"github.com/starford/ansuz/internal/storage"
)

func registry(t *testing.T) *slug.Registry {
	t.Helper()
	r, err := slug.NewRegistry(slug.StrategyNumber, "")
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func doc(p string) *models.Document {
	return &models.Document{Path: p}
}

func TestBuild_FolderIndexSlug(t *testing.T) {
	docs := []*models.Document{doc("blog/index.md"), doc("blog/first-post.md")}
	idx, err := Build(docs, registry(t), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d, ok := idx.BySlug("blog")
	if !ok || d.Path != "blog/index.md" {
		t.Fatalf("BySlug(blog) = %v, %v", d, ok)
	}
	info, _ := idx.SlugInfo("blog/index.md")
	if info.Source != models.SlugFromFolder || info.Altered {
		t.Errorf("info = %+v", info)
	}
}

func TestBuild_IndexWithEligibleSiblingKeepsFilename(t *testing.T) {
	docs := []*models.Document{doc("docs/index.md"), doc("docs/README.md")}
	idx, err := Build(docs, registry(t), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := idx.BySlug("index"); !ok {
		t.Error("expected docs/index.md to keep slug index")
	}
	if _, ok := idx.BySlug("docs"); ok {
		t.Error("folder slug should not be claimed")
	}
}

func TestBuild_RootIndexKeepsFilename(t *testing.T) {
	idx, err := Build([]*models.Document{doc("index.md")}, registry(t), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := idx.BySlug("index"); !ok {
		t.Error("root index.md should have slug index")
	}
}

func TestBuild_FilenameCollision(t *testing.T) {
	docs := []*models.Document{doc("b/Notes.md"), doc("a/Notes.md")}
	idx, err := Build(docs, registry(t), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if docs[1].Slug != "notes" || docs[0].Slug != "notes2" {
		t.Errorf("slugs = %q (a), %q (b)", docs[1].Slug, docs[0].Slug)
	}
	if got := idx.ByFilename("notes"); len(got) != 2 || got[0].Path != "a/Notes.md" {
		t.Errorf("ByFilename = %v", got)
	}
	info, _ := idx.SlugInfo("b/Notes.md")
	if !info.Altered || info.Requested != "notes" {
		t.Errorf("info = %+v", info)
	}
}

func TestBuild_DeterministicAcrossInputOrder(t *testing.T) {
	paths := []string{"x/Notes.md", "y/Notes.md", "z/notes.md", "Notes.md"}
	first := map[string]string{}
	for run := 0; run < 2; run++ {
		var docs []*models.Document
		for i := range paths {
			p := paths[i]
			if run == 1 {
				p = paths[len(paths)-1-i]
			}
			docs = append(docs, doc(p))
		}
		if _, err := Build(docs, registry(t), ""); err != nil {
			t.Fatal(err)
		}
		for _, d := range docs {
			if run == 0 {
				first[d.Path] = d.Slug
			} else if first[d.Path] != d.Slug {
				t.Errorf("%s: %q then %q", d.Path, first[d.Path], d.Slug)
			}
		}
	}
}

func TestBuild_DuplicatePath(t *testing.T) {
	_, err := Build([]*models.Document{doc("a/b.md"), doc("./a/b.md")}, registry(t), "")
	if !errors.Is(err, apperr.ErrDuplicatePath) {
		t.Errorf("err = %v, want ErrDuplicatePath", err)
	}
}

func TestBuild_Aliases(t *testing.T) {
	a := doc("pets/dog.md")
	a.Aliases = []string{"Fido"}
	b := doc("other/dog2.md")
	b.Aliases = []string{"fido"}
	idx, err := Build([]*models.Document{a, b}, registry(t), "")
	if err != nil {
		t.Fatal(err)
	}
	got := idx.ByAlias("FIDO")
	if len(got) != 2 {
		t.Fatalf("ByAlias = %d docs", len(got))
	}
	if Pick(got, "pets").Path != "pets/dog.md" {
		t.Error("Pick should prefer same folder")
	}
	if Pick(got, "elsewhere").Path != "other/dog2.md" {
		t.Error("Pick should fall back to first registered")
	}
}

func TestByPath_CaseInsensitiveFallback(t *testing.T) {
	idx, err := Build([]*models.Document{doc("Guides/Setup.md")}, registry(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.ByPath("guides/setup.md"); !ok {
		t.Error("expected case-insensitive path match")
	}
	if _, ok := idx.ByPath("/Guides/Setup.md"); !ok {
		t.Error("expected leading slash to be ignored")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("good.md", []byte("---\ntitle: Good\npublic: true\nslug: Custom Slug\naliases: [g]\n---\nbody #tag\n"))
	_ = store.Write("bad.md", []byte("---\ntitle: [unclosed\n---\n# Heading\n"))
	_ = store.Write("image.png", []byte("png"))

	h, _ := checksum.NewHasher("sha256")
	c := diag.NewCollector()
	docs, err := Load(store, h, c)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	var good, bad *models.Document
	for _, d := range docs {
		switch d.Path {
		case "good.md":
			good = d
		case "bad.md":
			bad = d
		}
	}
	if good == nil || bad == nil {
		t.Fatal("missing documents")
	}
	if !good.Public || good.ExplicitSlug != "Custom Slug" || good.Title != "Good" {
		t.Errorf("good = %+v", good)
	}
	if len(good.Aliases) != 1 || good.Aliases[0] != "g" {
		t.Errorf("aliases = %v", good.Aliases)
	}
	if good.Digest == "" {
		t.Error("digest not set")
	}
	if bad.Title != "Heading" {
		t.Errorf("bad title = %q", bad.Title)
	}
	if c.Count(models.DiagMalformedFrontmatter) != 1 {
		t.Errorf("malformed diagnostics = %d", c.Count(models.DiagMalformedFrontmatter))
	}
}
