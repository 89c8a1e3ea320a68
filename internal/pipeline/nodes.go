package pipeline

import (
	"fmt"

	"github.com/yuin/goldmark/ast"

	"github.com/starford/ansuz/internal/models"
)

// Node kinds produced by the passes. No pass reads another pass's kinds.
var (
	KindCallout      = ast.NewNodeKind("Callout")
	KindCalloutTitle = ast.NewNodeKind("CalloutTitle")
	KindMathInline   = ast.NewNodeKind("MathInline")
	KindMathBlock    = ast.NewNodeKind("MathBlock")
	KindDiagram      = ast.NewNodeKind("Diagram")
	KindIFrame       = ast.NewNodeKind("IFrame")
	KindHighlighted  = ast.NewNodeKind("Highlighted")
	KindMedia        = ast.NewNodeKind("Media")
)

// Callout is a blockquote opened by a [!type] marker. Its first child is a
// CalloutTitle, the rest is the remaining blockquote content.
type Callout struct {
	ast.BaseBlock
	CalloutType string
	Title       string
	Foldable    bool
	Open        bool
}

func (n *Callout) Kind() ast.NodeKind { return KindCallout }

func (n *Callout) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Type":     n.CalloutType,
		"Title":    n.Title,
		"Foldable": fmt.Sprint(n.Foldable),
	}, nil)
}

// CalloutTitle holds the inline nodes that followed the callout marker.
type CalloutTitle struct {
	ast.BaseBlock
}

func (n *CalloutTitle) Kind() ast.NodeKind { return KindCalloutTitle }

func (n *CalloutTitle) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// MathInline is a $...$ span.
type MathInline struct {
	ast.BaseInline
	Expr string
}

func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Expr": n.Expr}, nil)
}

// MathBlock is a display equation.
type MathBlock struct {
	ast.BaseBlock
	Expr string
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Expr": n.Expr}, nil)
}

// Diagram is a diagram source rendered client-side.
type Diagram struct {
	ast.BaseBlock
	Lang string
	Code string
}

func (n *Diagram) Kind() ast.NodeKind { return KindDiagram }

func (n *Diagram) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Lang": n.Lang}, nil)
}

// IFrame embeds an external page.
type IFrame struct {
	ast.BaseBlock
	URL string
}

func (n *IFrame) Kind() ast.NodeKind { return KindIFrame }

func (n *IFrame) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"URL": n.URL}, nil)
}

// Highlighted is a code block already rendered to HTML.
type Highlighted struct {
	ast.BaseBlock
	Lang string
	HTML []byte
}

func (n *Highlighted) Kind() ast.NodeKind { return KindHighlighted }

func (n *Highlighted) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Lang": n.Lang}, nil)
}

// Media is a resolved image, video or audio reference.
type Media struct {
	ast.BaseInline
	MediaType models.MediaType
	URL       string
	Alt       string
	Width     int
	Height    int
	Missing   bool
}

func (n *Media) Kind() ast.NodeKind { return KindMedia }

func (n *Media) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Type": string(n.MediaType),
		"URL":  n.URL,
	}, nil)
}
