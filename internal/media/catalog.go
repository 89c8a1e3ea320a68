// Package media resolves loose media references to content-addressed
// size/format variants.
package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Placeholder defaults.
const (
	DefaultPlaceholderURL    = "/assets/placeholder.svg"
	DefaultPlaceholderWidth  = 800
	DefaultPlaceholderHeight = 600
)

// Resolution strategy names, in the order they are tried.
const (
	StrategyExact    = "exact"
	StrategyPath     = "path"
	StrategyFilename = "filename"
)

// Options control URL building and variant selection.
type Options struct {
	PreferredSize  string
	Prefix         string // prepended to relative URLs, e.g. "/media"
	Domain         string // used when AbsoluteURLs is set
	AbsoluteURLs   bool
	HashAddressing bool
	Sharding       bool

	PlaceholderURL    string
	PlaceholderWidth  int
	PlaceholderHeight int
}

func (o Options) withDefaults() Options {
	if o.PlaceholderURL == "" {
		o.PlaceholderURL = DefaultPlaceholderURL
	}
	if o.PlaceholderWidth <= 0 {
		o.PlaceholderWidth = DefaultPlaceholderWidth
	}
	if o.PlaceholderHeight <= 0 {
		o.PlaceholderHeight = DefaultPlaceholderHeight
	}
	return o
}

// Resolution is the outcome of resolving one reference.
type Resolution struct {
	Asset    *models.MediaAsset
	Type     models.MediaType
	URL      string
	Width    int
	Height   int
	Size     string
	Format   string
	Strategy string
	Missing  bool
}

type best struct {
	asset *models.MediaAsset
	size  string
	v     models.FormatVariant
}

// Catalog is the read-only media table for one build.
type Catalog struct {
	opts   Options
	assets []*models.MediaAsset
	exact  map[string]*best
	byPath map[string]*best // lowercase original and hash paths
	byName map[string][]*best
}

type strategy struct {
	name string
	find func(c *Catalog, ref, docDir string) *best
}

// strategies is the ordered resolution chain; the first hit wins.
var strategies = []strategy{
	{StrategyExact, (*Catalog).findExact},
	{StrategyPath, (*Catalog).findPath},
	{StrategyFilename, (*Catalog).findFilename},
}

// NewCatalog precomputes the best variant of every asset. Assets without
// any variant get an "original" bucket pointing at their path.
func NewCatalog(assets []models.MediaAsset, opts Options) *Catalog {
	c := &Catalog{
		opts:   opts.withDefaults(),
		exact:  make(map[string]*best),
		byPath: make(map[string]*best),
		byName: make(map[string][]*best),
	}
	for i := range assets {
		a := assets[i]
		a.Sizes = cloneSizes(a.Sizes)
		EnsureOriginal(&a)
		if a.Type == "" {
			a.Type = Classify(a.Path)
		}
		c.assets = append(c.assets, &a)

		size, v, _ := SelectVariant(a.Sizes, c.opts.PreferredSize)
		b := &best{asset: &a, size: size, v: v}

		for _, k := range []string{a.Path, a.EffectivePath, a.HashPath} {
			if k == "" {
				continue
			}
			if _, dup := c.exact[k]; !dup {
				c.exact[k] = b
			}
		}
		for _, k := range []string{a.Path, a.HashPath} {
			if k == "" {
				continue
			}
			key := strings.ToLower(cleanPath(k))
			if _, dup := c.byPath[key]; !dup {
				c.byPath[key] = b
			}
		}
		name := strings.ToLower(path.Base(cleanPath(a.Path)))
		c.byName[name] = append(c.byName[name], b)
	}
	return c
}

// EnsureOriginal adds an "original" bucket derived from the asset path when
// the asset has none.
func EnsureOriginal(a *models.MediaAsset) {
	if a.Sizes == nil {
		a.Sizes = make(map[string][]models.FormatVariant)
	}
	if len(a.Sizes[SizeOriginal]) > 0 {
		return
	}
	src := a.EffectivePath
	if src == "" {
		src = a.Path
	}
	a.Sizes[SizeOriginal] = []models.FormatVariant{{
		Format: NormalizeFormat(path.Ext(src)),
		URL:    src,
	}}
}

// Len returns the number of assets.
func (c *Catalog) Len() int { return len(c.assets) }

// Resolve maps ref to a URL. docPath is the vault path of the referencing
// document. A miss returns the placeholder with Missing set.
func (c *Catalog) Resolve(ref Reference, docPath string) Resolution {
	target := strings.TrimSpace(ref.Target)
	docDir := path.Dir(docPath)
	if docDir == "." {
		docDir = ""
	}
	for _, s := range strategies {
		b := s.find(c, target, docDir)
		if b == nil {
			continue
		}
		return Resolution{
			Asset:    b.asset,
			Type:     b.asset.Type,
			URL:      c.URL(b.asset, b.size, b.v),
			Width:    b.v.Width,
			Height:   b.v.Height,
			Size:     b.size,
			Format:   NormalizeFormat(b.v.Format),
			Strategy: s.name,
		}
	}
	return Resolution{
		Type:    Classify(target),
		URL:     c.opts.PlaceholderURL,
		Width:   c.opts.PlaceholderWidth,
		Height:  c.opts.PlaceholderHeight,
		Missing: true,
	}
}

func (c *Catalog) findExact(ref, _ string) *best {
	return c.exact[ref]
}

func (c *Catalog) findPath(ref, docDir string) *best {
	p := cleanPath(ref)
	if p == "" {
		return nil
	}
	if docDir != "" {
		if b := c.byPath[strings.ToLower(path.Join(docDir, p))]; b != nil {
			return b
		}
	}
	return c.byPath[strings.ToLower(p)]
}

func (c *Catalog) findFilename(ref, docDir string) *best {
	p := cleanPath(ref)
	if p == "" {
		return nil
	}
	candidates := c.byName[strings.ToLower(path.Base(p))]
	if len(candidates) == 0 {
		return nil
	}
	for _, b := range candidates {
		if dirOf(b.asset.Path) == docDir {
			return b
		}
	}
	return candidates[0]
}

// URL builds the public URL of variant v of asset a in bucket size.
func (c *Catalog) URL(a *models.MediaAsset, size string, v models.FormatVariant) string {
	if isAbsoluteURL(v.URL) {
		return v.URL
	}
	rel := v.URL
	if c.opts.HashAddressing && a.Hash != "" {
		rel = HashedName(a.Hash, size, v.Format, c.opts.Sharding)
	}
	u := joinURL(c.opts.Prefix, rel)
	if c.opts.AbsoluteURLs && c.opts.Domain != "" {
		u = strings.TrimRight(c.opts.Domain, "/") + u
	}
	return u
}

// HashedName returns "<hash>-<size>.<format>", optionally under two
// levels of shard folders taken from the hash.
func HashedName(hash, size, format string, sharded bool) string {
	name := hash + "-" + size
	if f := NormalizeFormat(format); f != "" {
		name += "." + f
	}
	if sharded && len(hash) >= 4 {
		return hash[:2] + "/" + hash[2:4] + "/" + name
	}
	return name
}

// Results returns every asset with all of its variants' final URLs, keyed
// by asset path.
func (c *Catalog) Results() map[string]models.MediaResult {
	out := make(map[string]models.MediaResult, len(c.assets))
	for _, a := range c.assets {
		res := models.MediaResult{
			Path:     a.Path,
			Hash:     a.Hash,
			Type:     a.Type,
			Variants: make(map[string][]models.FormatVariant, len(a.Sizes)),
		}
		for size, variants := range a.Sizes {
			for _, v := range variants {
				res.Variants[size] = append(res.Variants[size], models.FormatVariant{
					Format: NormalizeFormat(v.Format),
					URL:    c.URL(a, size, v),
					Width:  v.Width,
					Height: v.Height,
				})
			}
		}
		out[a.Path] = res
	}
	return out
}

func cloneSizes(in map[string][]models.FormatVariant) map[string][]models.FormatVariant {
	out := make(map[string][]models.FormatVariant, len(in)+1)
	for k, v := range in {
		out[k] = append([]models.FormatVariant(nil), v...)
	}
	return out
}

func cleanPath(p string) string {
	p = stripFragment(p)
	if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

func dirOf(p string) string {
	d := path.Dir(cleanPath(p))
	if d == "." {
		return ""
	}
	return d
}

func isAbsoluteURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//") || strings.HasPrefix(u, "data:")
}

func joinURL(prefix, rel string) string {
	prefix = strings.TrimRight(prefix, "/")
	return prefix + "/" + strings.TrimLeft(rel, "/")
}
