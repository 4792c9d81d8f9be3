// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notebook catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/notebookservice"
)

// MarkerFormatURI is the resource URI of the metadata contract.
const MarkerFormatURI = "nbsite://marker-format"

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *notebookservice.Service
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *notebookservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"nbsite",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List notebooks in the catalog, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Only return notebooks carrying this tag")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notebooks (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of notebooks to skip")),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("search_notebooks",
		mcp.WithDescription("Full-text search through notebook titles, descriptions, tags and source."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotebooks)

	s.mcp.AddTool(mcp.NewTool("read_notebook",
		mcp.WithDescription("Read the catalog entry and full source of one notebook."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Notebook file name (e.g. normal_dist.py)")),
	), s.readNotebook)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag used in the catalog, sorted."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_marker_contract",
		mcp.WithDescription("Returns the notebook metadata contract. "+
			"Call this before authoring notebooks so their title, description and tags are picked up."),
	), s.getMarkerContract)

	s.mcp.AddResource(
		mcp.NewResource(MarkerFormatURI, "Notebook Metadata Contract",
			mcp.WithResourceDescription("Marker comments and front matter read by the site generator."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkerFormatResource,
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

func (s *Server) listNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListNotebooks(ctx,
		req.GetInt("limit", 50),
		req.GetInt("offset", 0),
		req.GetString("tag", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notebooks": items, "total": total})
}

func (s *Server) searchNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.svc.GetNotebook(ctx, filename)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", filename)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nb)
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) getMarkerContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkerContract), nil
}

func (s *Server) readMarkerFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MarkerFormatURI,
			MIMEType: "text/markdown",
			Text:     MarkerContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
