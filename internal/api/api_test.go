package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/build"
	"github.com/starford/ansuz/internal/siteservice"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

var testVaultFiles = map[string]string{
	"blog/index.md":      "---\ntitle: Blog\ntags: [go]\npublic: true\n---\n# Welcome\n\nSee [[blog/First Post]] and [[Nowhere]].\n",
	"blog/First Post.md": "# First Post\n\nSearchable gopher content. Back to [[blog]].\n",
	"about.md":           "# About\n\n![[missing.png]]\n",
}

// testEnv builds a temp vault into a temp output dir and SQLite DB, and
// returns the router. A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	_, router, _ := testEnvFull(t, authToken != "", authToken, nil)
	return router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*siteservice.Service, http.Handler, string) {
	t.Helper()

	vaultDir, vault := testutil.TestVault(t)
	testutil.WriteFiles(t, vaultDir, testVaultFiles)

	outDir := t.TempDir()
	out, err := storage.NewFS(outDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b, err := build.New(build.DefaultOptions(), logger)
	if err != nil {
		t.Fatal(err)
	}
	svc := siteservice.NewService(siteservice.Config{
		Builder: b,
		Vault:   vault,
		Output:  out,
		DB:      testutil.TestDB(t),
		Logger:  logger,
	})
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return svc, router, outDir
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetDocument(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents/first-post")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Path != "blog/First Post.md" {
		t.Errorf("path = %q", doc.Path)
	}
	if doc.Title != "First Post" {
		t.Errorf("title = %q, want First Post", doc.Title)
	}
	if len(doc.Backlinks) != 1 || doc.Backlinks[0] != "blog" {
		t.Errorf("backlinks = %v", doc.Backlinks)
	}
}

func TestGetDocument_TrailingSlash(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents/first-post/")
	if w.Code != http.StatusOK {
		t.Fatalf("trailing slash status = %d", w.Code)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp DocumentListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || len(resp.Documents) != 2 {
		t.Errorf("total = %d, documents = %d", resp.Total, len(resp.Documents))
	}

	w = get(t, router, "/documents?public=true")
	resp = DocumentListResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Documents[0].Slug != "blog" {
		t.Errorf("public list = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/search?q=gopher")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Slug != "first-post" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestGraphEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("graph status = %d", w.Code)
	}
	var resp GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(resp.Nodes))
	}
	if len(resp.Edges) != 2 {
		t.Errorf("edges = %+v, want blog <-> first-post", resp.Edges)
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/backlinks/blog")
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Backlinks) != 1 || resp.Backlinks[0] != "first-post" {
		t.Errorf("status = %d, resp = %+v", w.Code, resp)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/diagnostics")
	var resp DiagnosticsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %+v", resp.Diagnostics)
	}

	w = get(t, router, "/diagnostics?kind=missing-media")
	resp = DiagnosticsResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].DocumentPath != "about.md" {
		t.Errorf("missing-media = %+v", resp.Diagnostics)
	}
}

func TestBuildEndpoint(t *testing.T) {
	svc, router, _ := testEnvFull(t, false, "", nil)

	w := get(t, router, "/build")
	var resp BuildResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.ID != svc.Last().BuildID || resp.Documents != 3 {
		t.Errorf("status = %d, build = %+v", w.Code, resp)
	}
}

func TestTokenAuth(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "secret123", sseStub)

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"bearer header", "/documents", "Bearer secret123", http.StatusOK},
		{"scheme is case-insensitive", "/documents", "bearer secret123", http.StatusOK},
		{"missing", "/documents", "", http.StatusUnauthorized},
		{"wrong token", "/documents", "Bearer wrong", http.StatusUnauthorized},
		{"other scheme", "/documents", "Basic secret123", http.StatusUnauthorized},
		{"query token outside the stream", "/documents?access_token=secret123", "", http.StatusUnauthorized},
		{"stream without token", "/events", "", http.StatusUnauthorized},
		{"stream with wrong query token", "/events?access_token=nope", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if tc.header != "" {
				w = get(t, router, tc.target, "Authorization", tc.header)
			} else {
				w = get(t, router, tc.target)
			}
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized {
				var body apiError
				_ = json.Unmarshal(w.Body.Bytes(), &body)
				if body.Code != "unauthorized" || w.Header().Get("WWW-Authenticate") == "" {
					t.Errorf("rejection = %+v, headers = %v", body, w.Header())
				}
			}
		})
	}
}

func TestTokenAuth_Disabled(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents")
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestEvents_AcceptsHeaderOrQueryToken(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "tok", sseStub)

	for _, target := range []string{"/events", "/events?access_token=tok"} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
		if target == "/events" {
			req.Header.Set("Authorization", "Bearer tok")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		cancel()
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", target, w.Code)
		}
	}
}

func TestResponsesCarryBuildID(t *testing.T) {
	svc, router, _ := testEnvFull(t, false, "", nil)

	for _, target := range []string{"/documents", "/documents/nope"} {
		w := get(t, router, target)
		if got := w.Header().Get(BuildHeader); got != svc.Last().BuildID {
			t.Errorf("%s build header = %q, want %q", target, got, svc.Last().BuildID)
		}
	}
	w := get(t, router, "/documents/nope")
	var body apiError
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != "not_found" || body.Message == "" {
		t.Errorf("error body = %+v", body)
	}
}

// Site handler tests.

func TestSiteHandler_ServesPages(t *testing.T) {
	_, _, outDir := testEnvFull(t, false, "", nil)
	site := NewSiteHandler(outDir)

	w := get(t, site, "/blog")
	if w.Code != http.StatusOK {
		t.Fatalf("page status = %d", w.Code)
	}
	want, _ := os.ReadFile(filepath.Join(outDir, "blog.html"))
	if w.Body.String() != string(want) {
		t.Errorf("served body differs from blog.html")
	}

	w = get(t, site, "/"+build.ManifestFile)
	if w.Code != http.StatusOK {
		t.Errorf("manifest status = %d", w.Code)
	}
}

func TestSiteHandler_NotFound(t *testing.T) {
	site := NewSiteHandler(t.TempDir())

	w := get(t, site, "/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing page = %d, want 404", w.Code)
	}
}

func TestSiteHandler_TraversalBlocked(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(filepath.Dir(root), "secret.md"), []byte("x"), 0o644)
	site := NewSiteHandler(root)

	for _, name := range []string{"/../secret.md", "/../../etc/passwd"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = name
		w := httptest.NewRecorder()
		site.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}
