package api

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SiteHandler serves the compiled output directory: "/blog" maps to
// blog.html, "/" to index.html, and other files (manifests, styles) are
// served as-is.
type SiteHandler struct {
	root string
}

// NewSiteHandler creates a handler rooted at the output directory.
func NewSiteHandler(root string) *SiteHandler {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &SiteHandler{root: abs}
}

// safePath resolves rel under the output root, rejecting traversal.
func (h *SiteHandler) safePath(rel string) (string, error) {
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid path: %s", rel)
	}
	abs := filepath.Join(h.root, filepath.FromSlash(rel))
	if abs != h.root && !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes output directory")
	}
	return abs, nil
}

// ServeHTTP handles GET /*.
func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.URL.Path, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if rel == "" {
		rel = "index"
	}
	for _, cand := range []string{rel, rel + ".html", path.Join(rel, "index.html")} {
		abs, err := h.safePath(cand)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
			http.ServeFile(w, r, abs)
			return
		}
	}
	http.NotFound(w, r)
}
