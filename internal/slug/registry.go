package slug

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
)

// Collision strategies.
const (
	StrategyNumber = "number"
	StrategyHash   = "hash"
)

// hashSuffixLen is the number of digest characters appended by StrategyHash.
const hashSuffixLen = 6

// Candidate describes the names a document can take its slug from.
type Candidate struct {
	// Explicit is the frontmatter slug, if any.
	Explicit string
	// Filename is the file name without extension.
	Filename string
	// Folder is the name of the parent folder ("" at the vault root).
	Folder string
	// IndexStyle is set when the file is the folder's index document and has
	// no index-eligible siblings.
	IndexStyle bool
}

// Registry assigns unique slugs. Both of its mappings only ever grow.
type Registry struct {
	mu       sync.Mutex
	strategy string
	nonce    string
	owner    map[string]string
	infos    map[string]models.SlugInfo
}

// NewRegistry returns a registry using the given collision strategy.
func NewRegistry(strategy, nonce string) (*Registry, error) {
	switch strategy {
	case "":
		strategy = StrategyNumber
	case StrategyNumber, StrategyHash:
	default:
		return nil, fmt.Errorf("slug: unknown collision strategy %q", strategy)
	}
	return &Registry{
		strategy: strategy,
		nonce:    nonce,
		owner:    make(map[string]string),
		infos:    make(map[string]models.SlugInfo),
	}, nil
}

// Requested returns the pre-collision slug and its source for c.
func Requested(c Candidate) (string, models.SlugSource) {
	if s := Slugify(c.Explicit); s != "" {
		return s, models.SlugFromFrontmatter
	}
	if c.IndexStyle && c.Folder != "" {
		if s := Slugify(c.Folder); s != "" {
			return s, models.SlugFromFolder
		}
	}
	s := Slugify(c.Filename)
	if s == "" {
		s = Fallback
	}
	return s, models.SlugFromFilename
}

// Reserve assigns a slug to identity. Reserving an identity a second time
// returns the first assignment.
func (r *Registry) Reserve(identity string, c Candidate) models.SlugInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.infos[identity]; ok {
		return info
	}

	requested, source := Requested(c)
	final := requested
	for attempt := 1; ; attempt++ {
		owner, taken := r.owner[final]
		if !taken || owner == identity {
			break
		}
		final = r.next(requested, attempt)
	}

	info := models.SlugInfo{
		Slug:      final,
		Requested: requested,
		Source:    source,
		Altered:   final != requested,
	}
	r.owner[final] = identity
	r.infos[identity] = info
	return info
}

// next returns the attempt-th alternative for a taken slug.
func (r *Registry) next(requested string, attempt int) string {
	if r.strategy == StrategyHash {
		return requested + "-" + checksum.ShortString(requested+r.nonce+strconv.Itoa(attempt), hashSuffixLen)
	}
	return requested + strconv.Itoa(attempt+1)
}

// Lookup returns the slug info for identity.
func (r *Registry) Lookup(identity string) (models.SlugInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.infos[identity]
	return info, ok
}

// Owner returns the identity that owns slug.
func (r *Registry) Owner(slug string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owner[slug]
	return id, ok
}

// Len returns the number of reserved slugs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owner)
}
