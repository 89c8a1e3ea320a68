package pipeline

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"go.abhg.dev/goldmark/wikilink"

	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/media"
)

// wikiToken rebuilds the "target#fragment" token and the explicit label of
// a wiki-link node. The label is empty when it repeats the token.
func wikiToken(n *wikilink.Node, source []byte) (string, string) {
	token := string(n.Target)
	if len(n.Fragment) > 0 {
		token += "#" + string(n.Fragment)
	}
	label := strings.TrimSpace(plainText(n, source))
	if label == token || label == string(n.Target) {
		label = ""
	}
	return token, label
}

// isMediaEmbed reports whether n is handled by the media pass.
func isMediaEmbed(n *wikilink.Node) bool {
	return n.Embed && media.IsMedia(string(n.Target))
}

// linksPass resolves wiki-links (including note embeds) and relative
// markdown links.
func linksPass(t *Tree) error {
	if t.env == nil || t.env.Resolver == nil {
		return nil
	}
	nodes := t.collect(func(n ast.Node) bool {
		switch v := n.(type) {
		case *wikilink.Node:
			return !isMediaEmbed(v)
		case *ast.Link:
			return true
		}
		return false
	})

	for _, n := range nodes {
		switch v := n.(type) {
		case *wikilink.Node:
			token, label := wikiToken(v, t.Source)
			res := t.env.Resolver.ResolveWiki(token, label, t.Doc, v.Embed)
			if res.Diagnostic != nil {
				t.report(*res.Diagnostic)
			}
			t.links = append(t.links, res)

			link := ast.NewLink()
			link.Destination = []byte(res.URI)
			class := "wikilink"
			switch {
			case res.Broken:
				class = "wikilink broken-link"
			case v.Embed:
				class = "wikilink embed-link"
			}
			link.SetAttributeString("class", []byte(class))
			link.AppendChild(link, newText(res.Text))
			replace(v, link)

		case *ast.Link:
			dest := string(v.Destination)
			res := t.env.Resolver.ResolveMarkdown(dest, plainText(v, t.Source), t.Doc)
			if res.TargetSlug == "" {
				if !links.IsExternal(dest) && !strings.HasPrefix(dest, "#") && dest != "" {
					t.links = append(t.links, res)
				}
				continue
			}
			t.links = append(t.links, res)
			v.Destination = []byte(res.URI)
		}
	}
	return nil
}
