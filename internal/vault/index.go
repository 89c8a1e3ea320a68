// Package vault builds the per-build lookup tables over all documents.
package vault

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/slug"
)

// DefaultIndexName is the file stem that stands for its folder.
const DefaultIndexName = "index"

// indexEligible lists the stems that may claim a folder slug.
var indexEligible = []string{"readme", "_index"}

// Index is the read-only lookup structure for one build.
type Index struct {
	docs       []*models.Document
	bySlug     map[string]*models.Document
	byPath     map[string]*models.Document
	byPathFold map[string][]*models.Document
	byFilename map[string][]*models.Document
	byAlias    map[string][]*models.Document
	slugInfo   map[string]models.SlugInfo
}

// Build registers every document in path order. It assigns Document.Slug
// through reg and fails with apperr.ErrDuplicatePath if two documents share
// a normalized path. Build must run before any document is transformed.
func Build(docs []*models.Document, reg *slug.Registry, indexName string) (*Index, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	if err := CheckDuplicates(docs); err != nil {
		return nil, err
	}

	sorted := append([]*models.Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	eligible := eligibleCounts(sorted, indexName)

	idx := &Index{
		docs:       sorted,
		bySlug:     make(map[string]*models.Document, len(sorted)),
		byPath:     make(map[string]*models.Document, len(sorted)),
		byPathFold: make(map[string][]*models.Document, len(sorted)),
		byFilename: make(map[string][]*models.Document, len(sorted)),
		byAlias:    make(map[string][]*models.Document),
		slugInfo:   make(map[string]models.SlugInfo, len(sorted)),
	}

	for _, d := range sorted {
		key := NormalizePath(d.Path)
		stem := d.Stem()
		dir := d.Dir()

		folder := ""
		if dir != "" {
			folder = path.Base(dir)
		}
		info := reg.Reserve(key, slug.Candidate{
			Explicit:   d.ExplicitSlug,
			Filename:   stem,
			Folder:     folder,
			IndexStyle: folder != "" && strings.EqualFold(stem, indexName) && eligible[dir] == 1,
		})
		d.Slug = info.Slug

		idx.bySlug[info.Slug] = d
		idx.slugInfo[key] = info
		idx.byPath[key] = d
		fold := strings.ToLower(key)
		idx.byPathFold[fold] = append(idx.byPathFold[fold], d)

		fk := FilenameKey(stem)
		idx.byFilename[fk] = append(idx.byFilename[fk], d)

		for _, a := range d.Aliases {
			ak := strings.ToLower(strings.TrimSpace(a))
			if ak == "" {
				continue
			}
			idx.byAlias[ak] = append(idx.byAlias[ak], d)
		}
	}
	return idx, nil
}

// CheckDuplicates reports the first pair of documents sharing a normalized path.
func CheckDuplicates(docs []*models.Document) error {
	seen := make(map[string]string, len(docs))
	for _, d := range docs {
		key := NormalizePath(d.Path)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("vault: %q and %q: %w", prev, d.Path, apperr.ErrDuplicatePath)
		}
		seen[key] = d.Path
	}
	return nil
}

// eligibleCounts returns, per folder, how many documents could stand for it.
func eligibleCounts(docs []*models.Document, indexName string) map[string]int {
	out := make(map[string]int)
	for _, d := range docs {
		stem := strings.ToLower(d.Stem())
		if stem == strings.ToLower(indexName) {
			out[d.Dir()]++
			continue
		}
		for _, n := range indexEligible {
			if stem == n {
				out[d.Dir()]++
				break
			}
		}
	}
	return out
}

// NormalizePath converts p to the form used as a path key: forward slashes,
// cleaned, no leading "./" or "/".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// FilenameKey is the lowercase stem used by the filename table.
func FilenameKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if strings.EqualFold(path.Ext(base), ".md") {
		base = base[:len(base)-3]
	}
	return strings.ToLower(base)
}

// Documents returns all documents in path order.
func (x *Index) Documents() []*models.Document { return x.docs }

// Len returns the number of indexed documents.
func (x *Index) Len() int { return len(x.docs) }

// BySlug returns the document owning slug.
func (x *Index) BySlug(s string) (*models.Document, bool) {
	d, ok := x.bySlug[s]
	return d, ok
}

// ByPath looks p up exactly, then case-insensitively.
func (x *Index) ByPath(p string) (*models.Document, bool) {
	key := NormalizePath(p)
	if d, ok := x.byPath[key]; ok {
		return d, true
	}
	if ds := x.byPathFold[strings.ToLower(key)]; len(ds) > 0 {
		return ds[0], true
	}
	return nil, false
}

// ByFilename returns every document whose stem matches name, in
// registration order.
func (x *Index) ByFilename(name string) []*models.Document {
	return x.byFilename[FilenameKey(name)]
}

// ByAlias returns every document declaring alias (case-insensitive).
func (x *Index) ByAlias(alias string) []*models.Document {
	return x.byAlias[strings.ToLower(strings.TrimSpace(alias))]
}

// SlugInfo returns the slug assignment for the document at p.
func (x *Index) SlugInfo(p string) (models.SlugInfo, bool) {
	info, ok := x.slugInfo[NormalizePath(p)]
	return info, ok
}

// Pick chooses among candidates: the first one in folder dir, else the
// first registered.
func Pick(candidates []*models.Document, dir string) *models.Document {
	if len(candidates) == 0 {
		return nil
	}
	for _, d := range candidates {
		if d.Dir() == dir {
			return d
		}
	}
	return candidates[0]
}
