package pipeline

import (
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/starford/ansuz/internal/models"
)

// nodeRenderer writes the custom node kinds.
type nodeRenderer struct {
	opts Options
}

func newNodeRenderer(opts Options) renderer.NodeRenderer {
	return &nodeRenderer{opts: opts}
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCallout, r.renderCallout)
	reg.Register(KindCalloutTitle, r.renderCalloutTitle)
	reg.Register(KindMathInline, r.renderMathInline)
	reg.Register(KindMathBlock, r.renderMathBlock)
	reg.Register(KindDiagram, r.renderDiagram)
	reg.Register(KindIFrame, r.renderIFrame)
	reg.Register(KindHighlighted, r.renderHighlighted)
	reg.Register(KindMedia, r.renderMedia)
}

func (r *nodeRenderer) renderCallout(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Callout)
	typ := html.EscapeString(n.CalloutType)
	if entering {
		if n.Foldable {
			open := ""
			if n.Open {
				open = " open"
			}
			fmt.Fprintf(w, "<details class=\"callout callout-%s\" data-callout=\"%s\"%s>\n", typ, typ, open)
		} else {
			fmt.Fprintf(w, "<div class=\"callout callout-%s\" data-callout=\"%s\">\n", typ, typ)
		}
		return ast.WalkContinue, nil
	}
	if n.Foldable {
		_, _ = w.WriteString("</div>\n</details>\n")
	} else {
		_, _ = w.WriteString("</div>\n</div>\n")
	}
	return ast.WalkContinue, nil
}

// renderCalloutTitle writes the title element and opens the content wrapper
// that the enclosing callout closes.
func (r *nodeRenderer) renderCalloutTitle(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	tag := "div"
	if c, ok := node.Parent().(*Callout); ok && c.Foldable {
		tag = "summary"
	}
	if entering {
		fmt.Fprintf(w, "<%s class=\"callout-title\">", tag)
		return ast.WalkContinue, nil
	}
	fmt.Fprintf(w, "</%s>\n<div class=\"callout-content\">\n", tag)
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderMathInline(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		fmt.Fprintf(w, `<span class="math math-inline">\(%s\)</span>`, html.EscapeString(node.(*MathInline).Expr))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderMathBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		fmt.Fprintf(w, "<div class=\"math math-display\">\\[%s\\]</div>\n", html.EscapeString(node.(*MathBlock).Expr))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderDiagram(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*Diagram)
		fmt.Fprintf(w, "<pre class=\"%s\">%s</pre>\n", html.EscapeString(n.Lang), html.EscapeString(n.Code))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderIFrame(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		fmt.Fprintf(w, "<div class=\"embed\"><iframe src=\"%s\" loading=\"lazy\" allowfullscreen></iframe></div>\n", html.EscapeString(node.(*IFrame).URL))
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderHighlighted(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.Write(node.(*Highlighted).HTML)
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderMedia(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*Media)
	src := html.EscapeString(n.URL)
	size := ""
	if n.Width > 0 {
		size += fmt.Sprintf(` width="%d"`, n.Width)
	}
	if n.Height > 0 {
		size += fmt.Sprintf(` height="%d"`, n.Height)
	}
	switch n.MediaType {
	case models.MediaVideo:
		fmt.Fprintf(w, `<video controls src="%s"%s></video>`, src, size)
	case models.MediaAudio:
		fmt.Fprintf(w, `<audio controls src="%s"></audio>`, src)
	default:
		class := "media"
		if n.Missing {
			class += " media-missing"
		}
		fmt.Fprintf(w, `<img src="%s" alt="%s"%s loading="lazy" class="%s">`, src, html.EscapeString(n.Alt), size, class)
	}
	return ast.WalkSkipChildren, nil
}

// newSanitizer extends the UGC policy with the markup the passes emit.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").Globally()
	p.AllowAttrs("data-callout").OnElements("div", "details")
	p.AllowElements("details", "summary", "span", "pre")
	p.AllowAttrs("open").OnElements("details")
	p.AllowElements("iframe")
	p.AllowAttrs("src", "loading", "allowfullscreen").OnElements("iframe")
	p.AllowElements("video", "audio")
	p.AllowAttrs("src", "controls", "width", "height").OnElements("video", "audio")
	p.AllowAttrs("loading", "width", "height").OnElements("img")
	p.AllowURLSchemes("broken")
	return p
}
