// Package pipeline turns a document body into HTML through an ordered list
// of tree passes.
package pipeline

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/wikilink"

	"github.com/starford/ansuz/internal/diag"
	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/media"
	"github.com/starford/ansuz/internal/models"
)

// Pass names.
const (
	PassLinks     = "links"
	PassMedia     = "media"
	PassCallouts  = "callouts"
	PassMath      = "math"
	PassDiagrams  = "diagrams"
	PassHighlight = "highlight"
)

// Pass is one tree transformation.
type Pass struct {
	Name  string
	Apply func(*Tree) error
}

// DefaultPasses returns every pass in execution order.
func DefaultPasses() []Pass {
	return []Pass{
		{PassLinks, linksPass},
		{PassMedia, mediaPass},
		{PassCallouts, calloutsPass},
		{PassMath, mathPass},
		{PassDiagrams, diagramsPass},
		{PassHighlight, highlightPass},
	}
}

// PassNames returns the names of DefaultPasses.
func PassNames() []string {
	var names []string
	for _, p := range DefaultPasses() {
		names = append(names, p.Name)
	}
	return names
}

// Options configure a Pipeline.
type Options struct {
	// Passes lists the enabled passes. Nil enables all of them.
	Passes         []string
	EnableVideo    bool
	EnableAudio    bool
	Sanitize       bool
	HighlightStyle string
	ExcerptLength  int
}

// Env is the read-only build state shared by every document.
type Env struct {
	Resolver *links.Resolver
	Catalog  *media.Catalog
	Diags    *diag.Collector
}

// Result is the rendered form of one document.
type Result struct {
	HTML      string
	Headings  []models.Heading
	TOC       []models.TOCEntry
	Excerpt   string
	PlainText string
	Links     []models.ResolvedLink
}

// Pipeline is safe for concurrent use once built.
type Pipeline struct {
	md        goldmark.Markdown
	passes    []Pass
	env       Env
	opts      Options
	sanitizer *bluemonday.Policy
}

// New builds a pipeline. Unknown pass names are an error.
func New(env Env, opts Options) (*Pipeline, error) {
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = defaultExcerptLength
	}
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = defaultHighlightStyle
	}

	passes := DefaultPasses()
	if opts.Passes != nil {
		known := PassNames()
		for _, name := range opts.Passes {
			if !slices.Contains(known, name) {
				return nil, fmt.Errorf("pipeline: unknown pass %q", name)
			}
		}
		passes = slices.DeleteFunc(passes, func(p Pass) bool {
			return !slices.Contains(opts.Passes, p.Name)
		})
	}

	p := &Pipeline{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.DefinitionList,
				&wikilink.Extender{Resolver: plainResolver{}},
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
				renderer.WithNodeRenderers(util.Prioritized(newNodeRenderer(opts), 100)),
			),
		),
		passes: passes,
		env:    env,
		opts:   opts,
	}
	if opts.Sanitize {
		p.sanitizer = newSanitizer()
	}
	return p, nil
}

// Passes returns the names of the enabled passes in order.
func (p *Pipeline) Passes() []string {
	names := make([]string, 0, len(p.passes))
	for _, ps := range p.passes {
		names = append(names, ps.Name)
	}
	return names
}

// Parse builds the document tree for doc's body.
func (p *Pipeline) Parse(doc *models.Document) *Tree {
	source := []byte(doc.Body)
	root := p.md.Parser().Parse(text.NewReader(source))
	return &Tree{Doc: doc, Source: source, Root: root, env: &p.env, opts: &p.opts}
}

// Run parses doc, applies the enabled passes, builds the outline and
// renders HTML.
func (p *Pipeline) Run(doc *models.Document) (*Result, error) {
	tree := p.Parse(doc)
	for _, ps := range p.passes {
		if err := ps.Apply(tree); err != nil {
			return nil, fmt.Errorf("pipeline: pass %s: %w", ps.Name, err)
		}
	}

	out := outline(tree, p.opts.ExcerptLength)

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, tree.Source, tree.Root); err != nil {
		return nil, fmt.Errorf("pipeline: render: %w", err)
	}
	body := buf.Bytes()
	if p.sanitizer != nil {
		body = p.sanitizer.SanitizeBytes(body)
	}

	return &Result{
		HTML:      string(body),
		Headings:  out.headings,
		TOC:       out.toc,
		Excerpt:   out.excerpt,
		PlainText: out.plain,
		Links:     tree.Links(),
	}, nil
}

// plainResolver makes wiki-links left untouched by the passes render as
// their label text.
type plainResolver struct{}

func (plainResolver) ResolveWikilink(*wikilink.Node) ([]byte, error) {
	return nil, nil
}
