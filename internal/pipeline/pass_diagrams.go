package pipeline

import (
	"net/url"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// diagramsPass converts ```mermaid fences into Diagram nodes and
// ```iframe/```embed fences holding a single http(s) URL into IFrame nodes.
func diagramsPass(t *Tree) error {
	fences := t.collect(func(n ast.Node) bool {
		_, ok := n.(*ast.FencedCodeBlock)
		return ok
	})
	for _, n := range fences {
		lang, code := fenceInfo(n.(*ast.FencedCodeBlock), t.Source)
		switch lang {
		case "mermaid":
			replace(n, &Diagram{Lang: lang, Code: code})
		case "iframe", "embed":
			if u, ok := embedURL(code); ok {
				replace(n, &IFrame{URL: u})
			}
		}
	}
	return nil
}

func embedURL(code string) (string, bool) {
	s := strings.TrimSpace(code)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}
