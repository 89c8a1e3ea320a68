package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
)

var calloutRe = regexp.MustCompile(`^\[!([A-Za-z][\w-]*)\]([+-]?)\s*(.*)$`)

// calloutsPass turns blockquotes opening with "[!type]" into Callout nodes.
// The inline nodes after the marker on the first line become the title.
func calloutsPass(t *Tree) error {
	quotes := t.collect(func(n ast.Node) bool {
		_, ok := n.(*ast.Blockquote)
		return ok
	})
	for _, q := range quotes {
		para, ok := q.FirstChild().(*ast.Paragraph)
		if !ok || para.Lines().Len() == 0 {
			continue
		}
		seg := para.Lines().At(0)
		raw := seg.Value(t.Source)
		trimmed := bytes.TrimLeft(raw, " \t")
		m := calloutRe.FindSubmatchIndex(bytes.TrimRight(trimmed, " \t\r\n"))
		if m == nil {
			continue
		}

		c := &Callout{
			CalloutType: strings.ToLower(string(trimmed[m[2]:m[3]])),
			Foldable:    m[5] > m[4],
			Open:        string(trimmed[m[4]:m[5]]) != "-",
		}
		markerEnd := seg.Start + (len(raw) - len(trimmed)) + m[6]

		title := &CalloutTitle{}
		moveFirstLine(para, title, markerEnd)
		c.Title = strings.TrimSpace(plainText(title, t.Source))
		if c.Title == "" {
			c.Title = strings.ToUpper(c.CalloutType[:1]) + c.CalloutType[1:]
			for ch := title.FirstChild(); ch != nil; ch = title.FirstChild() {
				title.RemoveChild(title, ch)
			}
			title.AppendChild(title, newText(c.Title))
		}
		c.AppendChild(c, title)

		if para.FirstChild() == nil {
			q.RemoveChild(q, para)
		}
		for child := q.FirstChild(); child != nil; {
			next := child.NextSibling()
			q.RemoveChild(q, child)
			c.AppendChild(c, child)
			child = next
		}
		replace(q, c)
	}
	return nil
}

// moveFirstLine moves the inline nodes of a paragraph's first line into
// title, dropping the source text before markerEnd.
func moveFirstLine(para, title ast.Node, markerEnd int) {
	stripping := true
	for c := para.FirstChild(); c != nil; {
		next := c.NextSibling()
		para.RemoveChild(para, c)

		txt, isText := c.(*ast.Text)
		lineEnd := isText && (txt.SoftLineBreak() || txt.HardLineBreak())
		keep := true
		if stripping {
			switch {
			case !isText:
				stripping = false
			case txt.Segment.Stop <= markerEnd:
				keep = false
			case txt.Segment.Start < markerEnd:
				txt.Segment = txt.Segment.WithStart(markerEnd)
				stripping = false
			default:
				stripping = false
			}
		}
		if keep {
			if isText {
				txt.SetSoftLineBreak(false)
				txt.SetHardLineBreak(false)
			}
			title.AppendChild(title, c)
		}
		if lineEnd {
			return
		}
		c = next
	}
}
