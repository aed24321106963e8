// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes blog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/blog"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/index"
)

// FormatURI is the resource URI of the post format contract.
const FormatURI = "crispin://post-format"

// Posts is the blog surface exposed as tools.
type Posts interface {
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
	GetPost(ctx context.Context, slug string) (*blog.Post, error)
	ListPosts(ctx context.Context, limit, offset int, tag string) ([]blog.PostSummary, int, error)
	ListTags(ctx context.Context) ([]cms.Tag, error)
	CreatePost(ctx context.Context, title string) (cms.Entry, error)
}

// Ingester runs uploads through the asset pipeline.
type Ingester interface {
	Ingest(ctx context.Context, up assets.Upload) (assets.Record, error)
}

// Server wraps the MCP server with blog tools.
type Server struct {
	mcp    *server.MCPServer
	posts  Posts
	assets Ingester
	fetch  func(ctx context.Context, rawURL string) ([]byte, string, error)
}

// New creates a new MCP server with all blog tools registered.
func New(posts Posts, ingester Ingester) *Server {
	s := &Server{posts: posts, assets: ingester, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"thisiscrispin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through published post titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read a published post as Markdown."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug (the part after /p/)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List published posts, newest first."),
		mcp.WithString("tag", mcp.Description("Optional tag id to filter by")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tags that can be attached to posts."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all posts that link to the specified post."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the post to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create and publish a new post from a title. "+
			"The slug is derived from the title. Read the contract first via "+
			"the get_post_contract tool or the "+FormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Upload an image to the CMS from an http(s) URL or a base64 data URI. "+
			"Returns a markdownImage field ready to paste into a post body."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_post_contract",
		mcp.WithDescription("Returns the post format contract. "+
			"Call this before writing post bodies to ensure correct structure."),
	), s.getPostContract)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Post Format Contract",
			mcp.WithResourceDescription("Markdown format that post bodies follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
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

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.posts.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.posts.GetPost(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(p.Content), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	items, _, err := s.posts.ListPosts(ctx, 100, 0, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(items))
	for _, p := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s", p.Slug, p.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.posts.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(tags))
	for _, t := range tags {
		lines = append(lines, fmt.Sprintf("%s\t%s", t.Sys.ID, t.Name))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.posts.GetPost(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(p.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(p.Backlinks, "\n")), nil
}

func (s *Server) createPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.posts.CreatePost(ctx, title)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return mcp.NewToolResultError(fmt.Sprintf("post already exists: %s", blog.Slugify(title))), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", blog.Slugify(title), e.Sys.ID)), nil
}

func (s *Server) getPostContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}
