// Package build runs a whole-vault compilation: index, catalog, per-document
// pipeline and manifest assembly.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/diag"
	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/media"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/pipeline"
	"github.com/starford/ansuz/internal/slug"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/vault"
)

// Context carries the mutable state of one build. Nothing is shared between
// builds, so several can run at once.
type Context struct {
	Registry *slug.Registry
	Diags    *diag.Collector
	Hasher   *checksum.Hasher
}

// Builder compiles vaults with a fixed set of options.
type Builder struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New validates opts and returns a Builder.
func New(opts Options, logger *slog.Logger) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{opts: opts, logger: logger, now: time.Now}, nil
}

// Options returns the builder's options.
func (b *Builder) Options() Options { return b.opts }

// NewContext returns fresh per-build state.
func (b *Builder) NewContext() (*Context, error) {
	reg, err := slug.NewRegistry(b.opts.SlugStrategy, b.opts.SlugNonce)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	h, err := checksum.NewHasher(b.opts.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return &Context{Registry: reg, Diags: diag.NewCollector(), Hasher: h}, nil
}

// Run loads the vault from store and the media manifest from
// mediaManifest, then builds.
func (b *Builder) Run(ctx context.Context, store storage.Provider, mediaManifest string) (*models.Manifest, error) {
	bc, err := b.NewContext()
	if err != nil {
		return nil, err
	}
	docs, err := vault.Load(store, bc.Hasher, bc.Diags)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	assets, err := media.LoadManifest(mediaManifest)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return b.BuildWith(ctx, bc, docs, assets)
}

// Build compiles docs and assets with a fresh Context.
func (b *Builder) Build(ctx context.Context, docs []*models.Document, assets []models.MediaAsset) (*models.Manifest, error) {
	bc, err := b.NewContext()
	if err != nil {
		return nil, err
	}
	return b.BuildWith(ctx, bc, docs, assets)
}

// BuildWith compiles docs and assets using bc. Configuration problems,
// including duplicate document paths, fail before any document is
// transformed. Per-document failures are recorded and do not stop the build.
func (b *Builder) BuildWith(ctx context.Context, bc *Context, docs []*models.Document, assets []models.MediaAsset) (*models.Manifest, error) {
	start := b.now()

	if err := vault.CheckDuplicates(docs); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	idx, err := vault.Build(docs, bc.Registry, b.opts.IndexName)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	catalog := media.NewCatalog(assets, media.Options{
		PreferredSize:  b.opts.PreferredSize,
		Prefix:         b.opts.MediaPrefix,
		Domain:         b.opts.Domain,
		AbsoluteURLs:   b.opts.AbsoluteURLs,
		HashAddressing: b.opts.HashAddressing,
		Sharding:       b.opts.Sharding,
		PlaceholderURL: joinPrefix(b.opts.AssetsPrefix, "placeholder.svg"),
	})
	resolver := links.NewResolver(idx, links.Options{
		NotesPrefix:  b.opts.NotesPrefix,
		Domain:       b.opts.Domain,
		AbsoluteURLs: b.opts.AbsoluteURLs,
	})
	pl, err := pipeline.New(pipeline.Env{
		Resolver: resolver,
		Catalog:  catalog,
		Diags:    bc.Diags,
	}, pipeline.Options{
		Passes:         b.opts.Passes,
		EnableVideo:    b.opts.EnableVideo,
		EnableAudio:    b.opts.EnableAudio,
		Sanitize:       b.opts.Sanitize,
		HighlightStyle: b.opts.HighlightStyle,
		ExcerptLength:  b.opts.ExcerptLength,
	})
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	workers := b.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ordered := idx.Documents()
	records := make([]models.Record, len(ordered))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range ordered {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			records[i] = b.transform(pl, idx, bc, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	m := &models.Manifest{
		BuildID:     uuid.NewString(),
		GeneratedAt: b.now().UTC(),
		Documents:   records,
		Media:       catalog.Results(),
		Diagnostics: bc.Diags.All(),
		Graph:       graph(records),
	}

	b.logger.Info("build finished",
		slog.String("build_id", m.BuildID),
		slog.Int("documents", len(records)),
		slog.Int("failed", m.Failed()),
		slog.Int("media", catalog.Len()),
		slog.Int("diagnostics", len(m.Diagnostics)),
		slog.Duration("duration", b.now().Sub(start)))
	return m, nil
}

// transform runs the pipeline for one document. A pass error or panic marks
// only this record failed.
func (b *Builder) transform(pl *pipeline.Pipeline, idx *vault.Index, bc *Context, d *models.Document) (rec models.Record) {
	info, _ := idx.SlugInfo(d.Path)
	rec = models.Record{
		Path:        d.Path,
		Slug:        d.Slug,
		SlugInfo:    info,
		Title:       d.Title,
		Public:      d.Public,
		Tags:        d.Tags,
		Frontmatter: d.Frontmatter,
		Digest:      d.Digest,
		UpdatedAt:   d.ModTime,
	}

	fail := func(err error) {
		rec.Failed = true
		rec.Error = err.Error()
		bc.Diags.Add(models.Diagnostic{
			DocumentPath: d.Path,
			Kind:         models.DiagDocumentFailed,
			Detail:       err.Error(),
		})
		b.logger.Warn("document failed", slog.String("path", d.Path), slog.String("error", err.Error()))
	}
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := pl.Run(d)
	if err != nil {
		fail(err)
		return rec
	}
	rec.HTML = res.HTML
	rec.Excerpt = res.Excerpt
	rec.PlainText = res.PlainText
	rec.TOC = res.TOC
	rec.Headings = res.Headings
	rec.Links = res.Links
	return rec
}

// graph returns the distinct resolved document-to-document edges, sorted.
func graph(records []models.Record) []models.Edge {
	seen := make(map[models.Edge]bool)
	var edges []models.Edge
	for _, r := range records {
		for _, l := range r.Links {
			if l.TargetSlug == "" {
				continue
			}
			e := models.Edge{Source: r.Slug, Target: l.TargetSlug, Kind: l.Kind}
			if seen[e] {
				continue
			}
			seen[e] = true
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Kind < b.Kind
	})
	return edges
}

func joinPrefix(prefix, name string) string {
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix + "/" + name
}
