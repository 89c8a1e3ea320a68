// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes build results for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sitedb"
	"github.com/starford/ansuz/internal/siteservice"
)

// VaultFormatURI is the resource URI of the vault format description.
const VaultFormatURI = "ansuz://vault-format"

// Server wraps the MCP server with build-result tools.
type Server struct {
	mcp *server.MCPServer
	svc *siteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *siteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through rendered documents, titles and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read one compiled document by slug: metadata, table of contents, "+
			"outgoing links and backlinks, plus its plain text or HTML."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Document slug (e.g. blog)")),
		mcp.WithString("format", mcp.Description("Body format to include"), mcp.Enum("text", "html")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List compiled documents, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_diagnostics",
		mcp.WithDescription("List problems found by the last build (broken links, missing media, "+
			"malformed frontmatter, failed documents)."),
		mcp.WithString("kind", mcp.Description("Optional diagnostic kind"),
			mcp.Enum(string(models.DiagBrokenLink), string(models.DiagMissingMedia),
				string(models.DiagMalformedFrontmatter), string(models.DiagDocumentFailed))),
		mcp.WithString("path", mcp.Description("Optional document path")),
	), s.listDiagnostics)

	s.mcp.AddTool(mcp.NewTool("get_vault_format",
		mcp.WithDescription("Returns the vault authoring format understood by the compiler."),
	), s.getVaultFormat)

	// Resource: vault format description.
	s.mcp.AddResource(
		mcp.NewResource(VaultFormatURI, "Vault Format",
			mcp.WithResourceDescription("Markdown, frontmatter, link and embed syntax understood by the compiler."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVaultFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

type documentView struct {
	Path      string                `json:"path"`
	Slug      string                `json:"slug"`
	Title     string                `json:"title"`
	Public    bool                  `json:"public"`
	Tags      []string              `json:"tags"`
	TOC       []models.TOCEntry     `json:"toc"`
	Links     []models.ResolvedLink `json:"links"`
	Backlinks []string              `json:"backlinks"`
	Failed    bool                  `json:"failed,omitempty"`
	Error     string                `json:"error,omitempty"`
	Body      string                `json:"body"`
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	view := documentView{
		Path:      doc.Path,
		Slug:      doc.Slug,
		Title:     doc.Title,
		Public:    doc.Public,
		Tags:      doc.Tags,
		TOC:       doc.TOC,
		Links:     doc.Links,
		Backlinks: doc.Backlinks,
		Failed:    doc.Failed,
		Error:     doc.Error,
		Body:      doc.PlainText,
	}
	if req.GetString("format", "text") == "html" {
		view.Body = doc.HTML
	}
	return jsonResult(view), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListDocuments(ctx, sitedb.ListFilter{Tag: req.GetString("tag", ""), Limit: 1000})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Slug+"\t"+it.Path)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diags, err := s.svc.Diagnostics(ctx, sitedb.DiagnosticFilter{
		Kind:         models.DiagnosticKind(req.GetString("kind", "")),
		DocumentPath: req.GetString("path", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(diags), nil
}

func (s *Server) getVaultFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(VaultFormat), nil
}

func (s *Server) readVaultFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      VaultFormatURI,
			MIMEType: "text/markdown",
			Text:     VaultFormat,
		},
	}, nil
}
