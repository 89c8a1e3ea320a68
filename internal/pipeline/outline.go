package pipeline

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark/ast"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/slug"
)

const defaultExcerptLength = 200

type outlineResult struct {
	headings []models.Heading
	toc      []models.TOCEntry
	excerpt  string
	plain    string
}

// outline assigns heading ids and collects the heading list, table of
// contents, excerpt and plain text of the transformed tree.
func outline(t *Tree, excerptLen int) outlineResult {
	var out outlineResult
	used := make(map[string]int)

	for _, n := range t.collect(func(n ast.Node) bool { return n.Kind() == ast.KindHeading }) {
		h := n.(*ast.Heading)
		txt := strings.TrimSpace(plainText(h, t.Source))
		id := slug.Slugify(txt)
		if id == "" {
			id = "section"
		}
		if _, dup := used[id]; dup {
			base := id
			for k := used[base] + 1; ; k++ {
				id = base + "-" + strconv.Itoa(k)
				if _, taken := used[id]; !taken {
					used[base] = k
					break
				}
			}
		}
		used[id] = 0
		h.SetAttributeString("id", []byte(id))

		out.headings = append(out.headings, models.Heading{Depth: h.Level, Text: txt, ID: id})
		out.toc = append(out.toc, models.TOCEntry{Depth: h.Level, Text: txt, Anchor: "#" + id})
	}

	var blocks []string
	for c := t.Root.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, KindHighlighted, KindDiagram, KindIFrame, KindMathBlock:
			continue
		}
		s := strings.TrimSpace(plainText(c, t.Source))
		if s == "" {
			continue
		}
		blocks = append(blocks, s)
		if out.excerpt == "" && c.Kind() == ast.KindParagraph {
			out.excerpt = truncate(s, excerptLen)
		}
	}
	out.plain = strings.Join(blocks, "\n\n")
	return out
}

// truncate shortens s to at most n runes, cutting at a word boundary.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
