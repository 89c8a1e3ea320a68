package models

import (
	"time"

	"github.com/starford/ansuz/internal/frontmatter"
)

// LinkKind distinguishes how a link was written in the source.
type LinkKind string

const (
	LinkWiki     LinkKind = "wiki"
	LinkMarkdown LinkKind = "markdown"
	LinkEmbed    LinkKind = "embed"
)

// ResolvedLink is the outcome of resolving one link occurrence.
type ResolvedLink struct {
	Text       string      `json:"text"`
	Raw        string      `json:"raw"`
	URI        string      `json:"uri"`
	Kind       LinkKind    `json:"kind"`
	TargetSlug string      `json:"target_slug,omitempty"`
	TargetPath string      `json:"target_path,omitempty"`
	Broken     bool        `json:"broken,omitempty"`
	Diagnostic *Diagnostic `json:"-"`
}

// DiagnosticKind names a class of build problem.
type DiagnosticKind string

const (
	DiagBrokenLink           DiagnosticKind = "broken-link"
	DiagMissingMedia         DiagnosticKind = "missing-media"
	DiagMalformedFrontmatter DiagnosticKind = "malformed-frontmatter"
	DiagDocumentFailed       DiagnosticKind = "document-failed"
)

// Diagnostic is one non-fatal problem found during a build.
type Diagnostic struct {
	DocumentPath string         `json:"document_path"`
	Raw          string         `json:"raw"`
	Kind         DiagnosticKind `json:"kind"`
	ResolvedAs   string         `json:"resolved_as,omitempty"`
	Detail       string         `json:"detail,omitempty"`
}

// Heading is one heading of a rendered document.
type Heading struct {
	Depth int    `json:"depth"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// TOCEntry is one table of contents line.
type TOCEntry struct {
	Depth  int    `json:"depth"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

// Record is the per-document build output.
type Record struct {
	Path        string                   `json:"path"`
	Slug        string                   `json:"slug"`
	SlugInfo    SlugInfo                 `json:"slug_info"`
	Title       string                   `json:"title"`
	Public      bool                     `json:"public"`
	Tags        []string                 `json:"tags,omitempty"`
	Frontmatter *frontmatter.Frontmatter `json:"frontmatter,omitempty"`
	HTML        string                   `json:"html"`
	Excerpt     string                   `json:"excerpt"`
	PlainText   string                   `json:"plain_text"`
	TOC         []TOCEntry               `json:"toc"`
	Headings    []Heading                `json:"headings"`
	Links       []ResolvedLink           `json:"links,omitempty"`
	Digest      string                   `json:"digest"`
	UpdatedAt   time.Time                `json:"updated_at"`
	Failed      bool                     `json:"failed,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// Edge is a directed link between two documents in the vault graph.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"kind"`
}

// Manifest is the vault-wide build output.
type Manifest struct {
	BuildID     string                 `json:"build_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Documents   []Record               `json:"documents"`
	Media       map[string]MediaResult `json:"media"`
	Diagnostics []Diagnostic           `json:"diagnostics"`
	Graph       []Edge                 `json:"graph"`
}

// Failed returns the number of failed documents.
func (m *Manifest) Failed() int {
	n := 0
	for i := range m.Documents {
		if m.Documents[i].Failed {
			n++
		}
	}
	return n
}
