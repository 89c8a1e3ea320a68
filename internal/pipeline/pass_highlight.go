package pipeline

import (
	"bytes"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
)

const defaultHighlightStyle = "github"

// reservedLangs are fence languages owned by other passes. They are never
// highlighted, even when those passes are disabled.
var reservedLangs = map[string]bool{
	"mermaid": true,
	"math":    true,
	"iframe":  true,
	"embed":   true,
}

var codeFormatter = chromahtml.New(chromahtml.WithClasses(true))

// highlightPass renders fenced code with a known language through chroma.
func highlightPass(t *Tree) error {
	fences := t.collect(func(n ast.Node) bool {
		_, ok := n.(*ast.FencedCodeBlock)
		return ok
	})
	style := styles.Get(t.opts.HighlightStyle)
	for _, n := range fences {
		lang, code := fenceInfo(n.(*ast.FencedCodeBlock), t.Source)
		if lang == "" || reservedLangs[lang] {
			continue
		}
		lexer := lexers.Get(lang)
		if lexer == nil {
			continue
		}
		out, err := highlight(chroma.Coalesce(lexer), style, code)
		if err != nil {
			return fmt.Errorf("highlight %s: %w", lang, err)
		}
		replace(n, &Highlighted{Lang: lang, HTML: out})
	}
	return nil
}

func highlight(lexer chroma.Lexer, style *chroma.Style, code string) ([]byte, error) {
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := codeFormatter.Format(&buf, style, it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HighlightCSS returns the stylesheet for the classes emitted by the
// highlight pass.
func HighlightCSS(styleName string) (string, error) {
	if styleName == "" {
		styleName = defaultHighlightStyle
	}
	var buf bytes.Buffer
	if err := codeFormatter.WriteCSS(&buf, styles.Get(styleName)); err != nil {
		return "", fmt.Errorf("pipeline: highlight css: %w", err)
	}
	return buf.String(), nil
}
