package research

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/skylight/annotation"
	"github.com/hazyhaar/skylight/kit"
)

type queryReq struct {
	Project string `json:"project"`
	URLGlob string `json:"url_glob"`
}

func (r *queryReq) query() annotation.Query {
	return annotation.Query{Project: r.Project, URLGlob: r.URLGlob}
}

type searchReq struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type projectReq struct {
	Name string `json:"name"`
}

type tagURLReq struct {
	URL     string `json:"url"`
	Project string `json:"project"`
	On      bool   `json:"on"`
}

type deleteReq struct {
	ID string `json:"id"`
}

var queryProps = map[string]any{
	"project":  map[string]any{"type": "string", "description": "Project name; empty or General means all"},
	"url_glob": map[string]any{"type": "string", "description": "Glob on the page URL, e.g. https://example.com/*"},
}

// RegisterMCP registers the manager tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.register(srv, &mcp.Tool{
		Name:        "skylight_sources",
		Description: "List annotated pages with their highlights and notes, optionally filtered by project and URL glob.",
		InputSchema: kit.ObjectSchema(queryProps),
	}, func(ctx context.Context, req any) (any, error) {
		return s.Sources(ctx, req.(*queryReq).query())
	}, kit.DecodeJSON[queryReq]())

	s.register(srv, &mcp.Tool{
		Name:        "skylight_search",
		Description: "Fuzzy search highlighted text and notes across every page.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer", "description": "Maximum results (default 20)"},
		}, "query"),
	}, func(ctx context.Context, req any) (any, error) {
		r := req.(*searchReq)
		if r.Limit <= 0 {
			r.Limit = 20
		}
		return s.Search(ctx, r.Query, r.Limit)
	}, kit.DecodeJSON[searchReq]())

	s.register(srv, &mcp.Tool{
		Name:        "skylight_projects",
		Description: "List research projects.",
		InputSchema: kit.ObjectSchema(map[string]any{}),
	}, func(ctx context.Context, _ any) (any, error) {
		p, err := s.Projects(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": p}, nil
	}, kit.DecodeJSON[struct{}]())

	s.register(srv, &mcp.Tool{
		Name:        "skylight_add_project",
		Description: "Create a research project.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"name": map[string]any{"type": "string"},
		}, "name"),
	}, func(ctx context.Context, req any) (any, error) {
		name := strings.TrimSpace(req.(*projectReq).Name)
		if err := s.AddProject(ctx, name); err != nil {
			return nil, err
		}
		return map[string]string{"name": name}, nil
	}, kit.DecodeJSON[projectReq]())

	s.register(srv, &mcp.Tool{
		Name:        "skylight_tag_url",
		Description: "Add (on=true) or remove a project tag on every highlight of a page.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"url":     map[string]any{"type": "string"},
			"project": map[string]any{"type": "string"},
			"on":      map[string]any{"type": "boolean"},
		}, "url", "project", "on"),
	}, func(ctx context.Context, req any) (any, error) {
		r := req.(*tagURLReq)
		n, err := s.TagURL(ctx, r.URL, r.Project, r.On)
		if err != nil {
			return nil, err
		}
		return map[string]int{"updated": n}, nil
	}, kit.DecodeJSON[tagURLReq]())

	s.register(srv, &mcp.Tool{
		Name:        "skylight_delete",
		Description: "Delete one annotation by id.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"id": map[string]any{"type": "string"},
		}, "id"),
	}, func(ctx context.Context, req any) (any, error) {
		id := req.(*deleteReq).ID
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": id}, nil
	}, kit.DecodeJSON[deleteReq]())

	s.register(srv, &mcp.Tool{
		Name:        "skylight_export_markdown",
		Description: "Export research notecards as Markdown, grouped by source page.",
		InputSchema: kit.ObjectSchema(queryProps),
	}, func(ctx context.Context, req any) (any, error) {
		var sb strings.Builder
		if err := s.ExportMarkdown(ctx, &sb, req.(*queryReq).query()); err != nil {
			return nil, err
		}
		return map[string]string{"markdown": sb.String()}, nil
	}, kit.DecodeJSON[queryReq]())
}

func (s *Service) register(srv *mcp.Server, tool *mcp.Tool, ep kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	kit.RegisterMCPTool(srv, tool, kit.Logging(s.logger, tool.Name)(ep), decode)
}
