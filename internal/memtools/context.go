package memtools

import (
	"context"

	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// InjectTool handles the trae_mem_inject MCP tool.
type InjectTool struct {
	builder *inject.Builder
}

// NewInjectTool creates an InjectTool.
func NewInjectTool(builder *inject.Builder) *InjectTool {
	return &InjectTool{builder: builder}
}

// Definition returns the MCP tool definition for trae_mem_inject.
func (t *InjectTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_inject",
		mcp.WithDescription(
			"Build a context block to paste into a new session: recent session summaries plus "+
				"the observations most relevant to the query.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What the new session is about; blank skips the relevance search"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max relevant observations (default: 12)"),
		),
		mcp.WithString("project",
			mcp.Description("Restrict recent sessions to this project path"),
		),
	)
}

// Handle processes the trae_mem_inject tool call.
func (t *InjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, ok := intArg(req, "limit", inject.DefaultLimit)
	if !ok {
		return mcp.NewToolResultError("'limit' must be an integer"), nil
	}

	text, err := t.builder.Build(req.GetString("query", ""), limit, req.GetString("project", ""))
	if err != nil {
		return errorf("inject failed: %v", err), nil
	}
	return mcp.NewToolResultStructured(map[string]any{
		"context":          text,
		"estimated_tokens": memory.EstimateTokens(text),
	}, text), nil
}
