package vault

import (
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/diag"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

// Load scans store for markdown files and parses each into a Document.
// Malformed frontmatter is recorded in diags and does not stop the scan.
func Load(store storage.Provider, hasher *checksum.Hasher, diags *diag.Collector) ([]*models.Document, error) {
	files, err := store.List("", ".md")
	if err != nil {
		return nil, fmt.Errorf("vault: load: %w", err)
	}
	docs := make([]*models.Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, Parse(f, hasher, diags))
	}
	return docs, nil
}

// Parse builds a Document from one source file.
func Parse(f models.SourceFile, hasher *checksum.Hasher, diags *diag.Collector) *models.Document {
	body, fm, err := frontmatter.Split(f.Content)
	if err != nil && diags != nil {
		detail := err.Error()
		var me *frontmatter.MalformedError
		if errors.As(err, &me) {
			detail = me.Reason
		}
		diags.Add(models.Diagnostic{
			DocumentPath: NormalizePath(f.Path),
			Raw:          "---",
			Kind:         models.DiagMalformedFrontmatter,
			Detail:       detail,
		})
	}

	d := &models.Document{
		Path:         NormalizePath(f.Path),
		Body:         body,
		Frontmatter:  fm,
		Public:       fm.Bool("public"),
		ExplicitSlug: fm.String("slug"),
		Aliases:      frontmatter.Aliases(fm),
		Tags:         frontmatter.Tags(fm, body),
		ModTime:      f.ModTime,
	}
	if hasher != nil {
		d.Digest = hasher.Sum(f.Content)
	} else {
		d.Digest = checksum.Sum(f.Content)
	}
	d.Title = frontmatter.Title(fm, body, d.Stem())
	return d
}
