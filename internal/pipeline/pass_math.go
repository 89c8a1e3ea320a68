package pipeline

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

// mathPass converts $...$ spans, $$...$$ paragraphs and ```math fences.
func mathPass(t *Tree) error {
	blocks := t.collect(func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.FencedCodeBlock:
			lang, _ := fenceInfo(v, t.Source)
			return lang == "math"
		case *ast.Paragraph:
			s := strings.TrimSpace(blockLines(v, t.Source))
			return len(s) > 4 && strings.HasPrefix(s, "$$") && strings.HasSuffix(s, "$$")
		}
		return false
	})
	for _, n := range blocks {
		var expr string
		switch v := n.(type) {
		case *ast.FencedCodeBlock:
			_, expr = fenceInfo(v, t.Source)
		case *ast.Paragraph:
			s := strings.TrimSpace(blockLines(v, t.Source))
			expr = s[2 : len(s)-2]
		}
		replace(n, &MathBlock{Expr: strings.TrimSpace(expr)})
	}

	parents := t.collect(func(n ast.Node) bool {
		if n.Type() != ast.TypeBlock && !isInlineContainer(n) {
			return false
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*ast.Text); ok {
				return true
			}
		}
		return false
	})
	for _, p := range parents {
		for _, run := range textRuns(p) {
			rewriteMathRun(p, run, t.Source)
		}
	}
	return nil
}

func isInlineContainer(n ast.Node) bool {
	switch n.(type) {
	case *ast.Emphasis, *ast.Link:
		return true
	}
	return false
}

// textRuns groups adjacent Text children of p. A run ends after a soft
// line break; texts ending in a hard break are left alone.
func textRuns(p ast.Node) [][]*ast.Text {
	var runs [][]*ast.Text
	var cur []*ast.Text
	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		txt, ok := c.(*ast.Text)
		if !ok || txt.IsRaw() || txt.HardLineBreak() {
			flush()
			continue
		}
		cur = append(cur, txt)
		if txt.SoftLineBreak() {
			flush()
		}
	}
	flush()
	return runs
}

// findInlineMath returns the [start, end) offsets of every $...$ span in s,
// delimiters included. The content must not start or end with a space, a
// doubled "$$" never opens a span and a closing "$" followed by a digit does
// not close one.
func findInlineMath(s string) [][2]int {
	var out [][2]int
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		if i+1 < len(s) && s[i+1] == '$' {
			for i+1 < len(s) && s[i+1] == '$' {
				i++
			}
			continue
		}
		if i+1 >= len(s) || isSpace(s[i+1]) {
			continue
		}
		for j := i + 1; j < len(s) && s[j] != '\n'; j++ {
			if s[j] != '$' || s[j-1] == '\\' {
				continue
			}
			if !isSpace(s[j-1]) && (j+1 == len(s) || (s[j+1] != '$' && !isDigit(s[j+1]))) {
				out = append(out, [2]int{i, j + 1})
				i = j
			}
			break
		}
	}
	return out
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func rewriteMathRun(parent ast.Node, run []*ast.Text, source []byte) {
	var sb strings.Builder
	for _, txt := range run {
		sb.Write(txt.Segment.Value(source))
	}
	s := sb.String()
	spans := findInlineMath(s)
	if len(spans) == 0 {
		return
	}

	var repl []ast.Node
	pos := 0
	for _, sp := range spans {
		if sp[0] > pos {
			repl = append(repl, newText(s[pos:sp[0]]))
		}
		repl = append(repl, &MathInline{Expr: s[sp[0]+1 : sp[1]-1]})
		pos = sp[1]
	}
	tail := s[pos:]
	if run[len(run)-1].SoftLineBreak() {
		tail += "\n"
	}
	if tail != "" {
		repl = append(repl, newText(tail))
	}

	for _, n := range repl {
		parent.InsertBefore(parent, run[0], n)
	}
	for _, txt := range run {
		parent.RemoveChild(parent, txt)
	}
}
