package memtools

import (
	"context"
	"strings"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchTool handles the trae_mem_search MCP tool.
type SearchTool struct {
	store *memory.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *memory.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for trae_mem_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_search",
		mcp.WithDescription(
			"Search persistent memory across sessions (lightweight index). Returns observation ids, "+
				"snippets and scores; follow up with trae_mem_timeline or trae_mem_get_observations.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Keywords or a phrase; CJK text is supported"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// Handle processes the trae_mem_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit, ok := intArg(req, "limit", 20)
	if !ok {
		return mcp.NewToolResultError("'limit' must be an integer"), nil
	}

	hits, err := t.store.Search(query, limit)
	if err != nil {
		return errorf("search failed: %v", err), nil
	}
	if hits == nil {
		hits = []memory.SearchHit{}
	}
	return jsonResult(hits, map[string]any{"results": hits})
}
