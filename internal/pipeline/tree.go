package pipeline

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/starford/ansuz/internal/models"
)

// Tree is one parsed document travelling through the passes.
type Tree struct {
	Doc    *models.Document
	Source []byte
	Root   ast.Node

	links []models.ResolvedLink
	env   *Env
	opts  *Options
}

// Links returns the links recorded by the links pass, in document order.
func (t *Tree) Links() []models.ResolvedLink { return t.links }

func (t *Tree) report(d models.Diagnostic) {
	if t.env != nil && t.env.Diags != nil {
		t.env.Diags.Add(d)
	}
}

// collect returns every node for which match is true, in document order.
// Passes mutate the tree only after collecting, never during a walk.
func (t *Tree) collect(match func(ast.Node) bool) []ast.Node {
	var out []ast.Node
	_ = ast.Walk(t.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && match(n) {
			out = append(out, n)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// replace puts repl where old is.
func replace(old, repl ast.Node) {
	parent := old.Parent()
	if parent == nil {
		return
	}
	parent.ReplaceChild(parent, old, repl)
}

// plainText flattens the text, string and inline code values under n.
func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	writePlain(&buf, n, source)
	return buf.String()
}

func writePlain(buf *bytes.Buffer, n ast.Node, source []byte) {
	switch v := n.(type) {
	case *ast.Text:
		buf.Write(v.Segment.Value(source))
		if v.SoftLineBreak() || v.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return
	case *ast.String:
		buf.Write(v.Value)
		return
	case *MathInline:
		buf.WriteString(v.Expr)
		return
	case *Media:
		buf.WriteString(v.Alt)
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writePlain(buf, c, source)
	}
}

// blockLines returns the raw source lines of a block node.
func blockLines(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// fenceInfo returns the lowercased language and the code of a fenced block.
func fenceInfo(n *ast.FencedCodeBlock, source []byte) (string, string) {
	lang := ""
	if n.Info != nil {
		lang = strings.ToLower(string(n.Language(source)))
	}
	return lang, blockLines(n, source)
}

// newText returns an inline string node holding s.
func newText(s string) *ast.String {
	return ast.NewString([]byte(s))
}
