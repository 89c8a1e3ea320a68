// Package diag collects non-fatal build problems.
package diag

import (
	"sort"
	"sync"

	"github.com/starford/ansuz/internal/models"
)

// Collector is an append-only, concurrency-safe list of diagnostics.
type Collector struct {
	mu    sync.Mutex
	items []models.Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends d.
func (c *Collector) Add(d models.Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// All returns a copy of the diagnostics sorted by document, kind and raw
// reference so that output is stable regardless of worker scheduling.
func (c *Collector) All() []models.Diagnostic {
	c.mu.Lock()
	out := append([]models.Diagnostic(nil), c.items...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DocumentPath != b.DocumentPath {
			return a.DocumentPath < b.DocumentPath
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Raw < b.Raw
	})
	return out
}

// ForDocument returns the diagnostics recorded for path.
func (c *Collector) ForDocument(path string) []models.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Diagnostic
	for _, d := range c.items {
		if d.DocumentPath == path {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of diagnostics of kind.
func (c *Collector) Count(kind models.DiagnosticKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
