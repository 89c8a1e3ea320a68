package build

import (
	"encoding/json"
	"fmt"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/pipeline"
	"github.com/starford/ansuz/internal/storage"
)

// Output file names.
const (
	ManifestFile    = "manifest.json"
	MediaFile       = "media.json"
	DiagnosticsFile = "diagnostics.json"
	StylesFile      = "assets/highlight.css"
)

// Write stores the rendered documents and the JSON manifests in sink.
// Failed documents get no HTML file.
func Write(m *models.Manifest, sink storage.Sink) error {
	for _, r := range m.Documents {
		if r.Failed {
			continue
		}
		if err := sink.Write(HTMLPath(r.Slug), []byte(r.HTML)); err != nil {
			return fmt.Errorf("build: write %s: %w", r.Path, err)
		}
	}
	files := []struct {
		name string
		v    any
	}{
		{ManifestFile, m},
		{MediaFile, m.Media},
		{DiagnosticsFile, m.Diagnostics},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("build: encode %s: %w", f.name, err)
		}
		if err := sink.Write(f.name, data); err != nil {
			return fmt.Errorf("build: write %s: %w", f.name, err)
		}
	}
	return nil
}

// WriteStyles stores the stylesheet for highlighted code.
func WriteStyles(sink storage.Sink, style string) error {
	css, err := pipeline.HighlightCSS(style)
	if err != nil {
		return err
	}
	if err := sink.Write(StylesFile, []byte(css)); err != nil {
		return fmt.Errorf("build: write %s: %w", StylesFile, err)
	}
	return nil
}

// Prune removes HTML files of documents present in prev but gone from next.
func Prune(prev, next *models.Manifest, store storage.Provider) error {
	if prev == nil {
		return nil
	}
	keep := make(map[string]bool, len(next.Documents))
	for _, r := range next.Documents {
		if !r.Failed {
			keep[r.Slug] = true
		}
	}
	for _, r := range prev.Documents {
		if keep[r.Slug] {
			continue
		}
		if err := store.Delete(HTMLPath(r.Slug)); err != nil {
			return fmt.Errorf("build: prune %s: %w", r.Slug, err)
		}
	}
	return nil
}

// HTMLPath returns the output file for slug.
func HTMLPath(slug string) string {
	return slug + ".html"
}
