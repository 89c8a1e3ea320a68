// Package models defines the domain types shared by the compiler stages.
package models

import (
	"path"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/frontmatter"
)

// Document is one vault file. It is created by the vault scan and not
// modified afterwards, except for Slug which the index builder assigns once.
type Document struct {
	Path         string                   `json:"path"`
	Body         string                   `json:"-"`
	Frontmatter  *frontmatter.Frontmatter `json:"frontmatter,omitempty"`
	Slug         string                   `json:"slug"`
	Public       bool                     `json:"public"`
	ExplicitSlug string                   `json:"explicit_slug,omitempty"`
	Aliases      []string                 `json:"aliases,omitempty"`
	Title        string                   `json:"title"`
	Tags         []string                 `json:"tags,omitempty"`
	Digest       string                   `json:"digest"`
	ModTime      time.Time                `json:"mod_time"`
}

// Dir returns the folder of the document relative to the vault root ("" for the root).
func (d *Document) Dir() string {
	dir := path.Dir(d.Path)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// Stem returns the file name without its extension.
func (d *Document) Stem() string {
	base := path.Base(d.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// SourceFile is a raw vault entry as listed by the storage layer.
type SourceFile struct {
	Path    string
	Content []byte
	ModTime time.Time
}

// SlugSource records which rule produced a requested slug.
type SlugSource string

const (
	SlugFromFrontmatter SlugSource = "frontmatter"
	SlugFromFilename    SlugSource = "filename"
	SlugFromFolder      SlugSource = "folder"
)

// SlugInfo is the result of slug assignment for one document.
type SlugInfo struct {
	Slug      string     `json:"slug"`
	Requested string     `json:"requested"`
	Source    SlugSource `json:"source"`
	Altered   bool       `json:"altered"`
}
