package links

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/slug"
	"github.com/starford/ansuz/internal/vault"
)

// BrokenScheme prefixes the URI of an unresolved wiki-link.
const BrokenScheme = "broken:"

// Options control URI building.
type Options struct {
	NotesPrefix  string // e.g. "/" or "/notes"
	Domain       string
	AbsoluteURLs bool
}

// Resolver answers link lookups against a frozen vault index. It is safe
// for concurrent use.
type Resolver struct {
	idx  *vault.Index
	opts Options
}

type strategy struct {
	name string
	find func(r *Resolver, page string, from *models.Document) *models.Document
}

// strategies is the ordered page lookup chain; the first hit wins.
var strategies = []strategy{
	{"slug", (*Resolver).bySlug},
	{"alias", (*Resolver).byAlias},
	{"filename", (*Resolver).byFilename},
	{"path", (*Resolver).byPath},
}

// NewResolver returns a resolver over idx.
func NewResolver(idx *vault.Index, opts Options) *Resolver {
	return &Resolver{idx: idx, opts: opts}
}

// Lookup finds the document a page name refers to and the strategy that
// matched.
func (r *Resolver) Lookup(page string, from *models.Document) (*models.Document, string) {
	page = strings.TrimSpace(page)
	if page == "" {
		return nil, ""
	}
	for _, s := range strategies {
		if d := s.find(r, page, from); d != nil {
			return d, s.name
		}
	}
	return nil, ""
}

func (r *Resolver) bySlug(page string, _ *models.Document) *models.Document {
	d, _ := r.idx.BySlug(page)
	return d
}

func (r *Resolver) byAlias(page string, from *models.Document) *models.Document {
	return vault.Pick(r.idx.ByAlias(page), dirOf(from))
}

func (r *Resolver) byFilename(page string, from *models.Document) *models.Document {
	return vault.Pick(r.idx.ByFilename(page), dirOf(from))
}

func (r *Resolver) byPath(page string, _ *models.Document) *models.Document {
	if d, ok := r.idx.ByPath(page); ok {
		return d
	}
	if d, ok := r.idx.ByPath(page + ".md"); ok {
		return d
	}
	return nil
}

// ResolveWiki resolves one [[token|label]] occurrence in from. It never
// fails: an unknown page yields a "broken:" URI and a diagnostic.
func (r *Resolver) ResolveWiki(token, label string, from *models.Document, embed bool) models.ResolvedLink {
	kind := models.LinkWiki
	if embed {
		kind = models.LinkEmbed
	}
	raw := "[[" + token
	if label != "" {
		raw += "|" + label
	}
	raw += "]]"
	if embed {
		raw = "!" + raw
	}

	link := models.ResolvedLink{
		Text: displayText(token, label),
		Raw:  raw,
		Kind: kind,
	}

	t := Classify(token)
	switch t.Class {
	case Header:
		link.URI = "#" + slug.Slugify(t.Anchor)
		return link
	case Block:
		link.URI = "#^" + t.Anchor
		return link
	}

	d, _ := r.Lookup(t.Page, from)
	if d == nil {
		link.URI = BrokenScheme + strings.TrimSpace(token)
		link.Broken = true
		link.Diagnostic = &models.Diagnostic{
			DocumentPath: pathOf(from),
			Raw:          raw,
			Kind:         models.DiagBrokenLink,
			ResolvedAs:   link.URI,
			Detail:       "no document matches " + strconv.Quote(t.Page),
		}
		return link
	}

	link.TargetSlug = d.Slug
	link.TargetPath = d.Path
	link.URI = r.DocumentURL(d.Slug)
	switch t.Class {
	case PageHeader:
		link.URI += "#" + slug.Slugify(t.Anchor)
	case PageBlock:
		link.URI += "#^" + t.Anchor
	}
	return link
}

// ResolveMarkdown resolves the destination of a [text](dest) link. External
// and fragment-only destinations are returned unchanged, as is any relative
// destination that matches no document.
func (r *Resolver) ResolveMarkdown(dest, text string, from *models.Document) models.ResolvedLink {
	link := models.ResolvedLink{
		Text: text,
		Raw:  "[" + text + "](" + dest + ")",
		URI:  dest,
		Kind: models.LinkMarkdown,
	}
	if dest == "" || strings.HasPrefix(dest, "#") || IsExternal(dest) {
		return link
	}

	p, frag, _ := strings.Cut(dest, "#")
	if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	d := r.lookupRelative(p, from)
	if d == nil {
		return link
	}
	link.TargetSlug = d.Slug
	link.TargetPath = d.Path
	link.URI = r.DocumentURL(d.Slug)
	if frag != "" {
		if strings.HasPrefix(frag, "^") {
			link.URI += "#" + frag
		} else {
			link.URI += "#" + slug.Slugify(frag)
		}
	}
	return link
}

func (r *Resolver) lookupRelative(p string, from *models.Document) *models.Document {
	var base string
	if strings.HasPrefix(p, "/") {
		base = strings.TrimLeft(p, "/")
	} else {
		base = path.Join(dirOf(from), p)
	}
	candidates := []string{base}
	if ext := path.Ext(base); ext == "" {
		candidates = append(candidates, base+".md")
	} else {
		candidates = append(candidates, strings.TrimSuffix(base, ext)+".md", strings.TrimSuffix(base, ext))
	}
	for _, c := range candidates {
		if d, ok := r.idx.ByPath(c); ok {
			return d
		}
	}
	if ext := strings.ToLower(path.Ext(base)); ext != "" && ext != ".md" {
		return nil
	}
	return vault.Pick(r.idx.ByFilename(path.Base(base)), dirOf(from))
}

// DocumentURL returns the public URL for slug s.
func (r *Resolver) DocumentURL(s string) string {
	prefix := strings.TrimRight(r.opts.NotesPrefix, "/")
	u := prefix + "/" + s
	if r.opts.AbsoluteURLs && r.opts.Domain != "" {
		u = strings.TrimRight(r.opts.Domain, "/") + u
	}
	return u
}

// IsExternal reports whether dest points outside the vault.
func IsExternal(dest string) bool {
	if strings.HasPrefix(dest, "//") || strings.HasPrefix(strings.ToLower(dest), "mailto:") {
		return true
	}
	u, err := url.Parse(dest)
	return err == nil && u.Scheme != ""
}

func displayText(token, label string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return strings.TrimSpace(token)
}

func dirOf(d *models.Document) string {
	if d == nil {
		return ""
	}
	return d.Dir()
}

func pathOf(d *models.Document) string {
	if d == nil {
		return ""
	}
	return d.Path
}
