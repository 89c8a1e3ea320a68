package pipeline

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
	"go.abhg.dev/goldmark/wikilink"

	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/media"
	"github.com/starford/ansuz/internal/models"
)

// mediaPass resolves media embeds and markdown images against the catalog.
func mediaPass(t *Tree) error {
	if t.env == nil || t.env.Catalog == nil {
		return nil
	}
	nodes := t.collect(func(n ast.Node) bool {
		switch v := n.(type) {
		case *wikilink.Node:
			return isMediaEmbed(v)
		case *ast.Image:
			return !links.IsExternal(string(v.Destination))
		}
		return false
	})

	for _, n := range nodes {
		var ref media.Reference
		switch v := n.(type) {
		case *wikilink.Node:
			_, label := wikiToken(v, t.Source)
			ref = media.ParseEmbed(string(v.Target), label)
		case *ast.Image:
			alt := plainText(v, t.Source)
			dest := string(v.Destination)
			ref = media.Reference{
				Raw:    fmt.Sprintf("![%s](%s)", alt, dest),
				Target: dest,
				Alt:    alt,
			}
		}
		replace(n, t.mediaNode(ref))
	}
	return nil
}

func (t *Tree) mediaNode(ref media.Reference) ast.Node {
	kind := media.Classify(ref.Target)
	switch {
	case kind == models.MediaOther,
		kind == models.MediaVideo && !t.opts.EnableVideo,
		kind == models.MediaAudio && !t.opts.EnableAudio:
		return newText(ref.Raw)
	}

	res := t.env.Catalog.Resolve(ref, t.Doc.Path)
	if res.Missing {
		t.report(models.Diagnostic{
			DocumentPath: t.Doc.Path,
			Raw:          ref.Raw,
			Kind:         models.DiagMissingMedia,
			ResolvedAs:   res.URL,
			Detail:       "no media asset matches " + ref.Target,
		})
	}

	n := &Media{
		MediaType: kind,
		URL:       res.URL,
		Alt:       ref.Alt,
		Width:     res.Width,
		Height:    res.Height,
		Missing:   res.Missing,
	}
	if ref.Width > 0 {
		n.Width = ref.Width
		n.Height = ref.Height
		if n.Height == 0 && res.Width > 0 {
			n.Height = res.Height * ref.Width / res.Width
		}
	}
	return n
}
