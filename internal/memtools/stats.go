package memtools

import (
	"context"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatsTool handles the trae_mem_stats MCP tool.
type StatsTool struct {
	store *memory.Store
}

// NewStatsTool creates a StatsTool with the given memory store.
func NewStatsTool(store *memory.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for trae_mem_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_stats",
		mcp.WithDescription(
			"Show memory statistics: sessions, observations, private observations, summaries "+
				"and the active full-text tokenizer.",
		),
	)
}

// Handle processes the trae_mem_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return errorf("failed to get stats: %v", err), nil
	}
	return jsonResult(stats, stats)
}
