package memtools

import (
	"context"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// TimelineTool handles the trae_mem_timeline MCP tool.
type TimelineTool struct {
	store *memory.Store
}

// NewTimelineTool creates a TimelineTool.
func NewTimelineTool(store *memory.Store) *TimelineTool {
	return &TimelineTool{store: store}
}

// Definition returns the MCP tool definition for trae_mem_timeline.
func (t *TimelineTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_timeline",
		mcp.WithDescription(
			"Given an observation_id, return the observations of the same session within a time "+
				"window around it. Use after trae_mem_search to drill into the surrounding events.",
		),
		mcp.WithString("observation_id",
			mcp.Required(),
			mcp.Description("The observation to center on (from trae_mem_search results)"),
		),
		mcp.WithNumber("window",
			mcp.Description("Half-width of the window in minutes (default: 10)"),
		),
	)
}

// Handle processes the trae_mem_timeline tool call. An unknown anchor
// yields an empty list.
func (t *TimelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	obsID := req.GetString("observation_id", "")
	if obsID == "" {
		return mcp.NewToolResultError("'observation_id' is required"), nil
	}
	window, ok := intArg(req, "window", 10)
	if !ok {
		return mcp.NewToolResultError("'window' must be an integer"), nil
	}

	items, err := t.store.Timeline(obsID, window)
	if err != nil {
		return errorf("timeline failed: %v", err), nil
	}
	if items == nil {
		items = []memory.Observation{}
	}
	return jsonResult(items, map[string]any{"items": items})
}

// ─── GetObservationsTool ────────────────────────────────────────────────────

// GetObservationsTool handles the trae_mem_get_observations MCP tool.
type GetObservationsTool struct {
	store *memory.Store
}

// NewGetObservationsTool creates a GetObservationsTool.
func NewGetObservationsTool(store *memory.Store) *GetObservationsTool {
	return &GetObservationsTool{store: store}
}

// Definition returns the MCP tool definition for trae_mem_get_observations.
func (t *GetObservationsTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_get_observations",
		mcp.WithDescription(
			"Fetch full observation records by id, ordered by time. Unknown ids are skipped.",
		),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Observation ids"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the trae_mem_get_observations tool call.
func (t *GetObservationsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, ok := stringsArg(req, "ids")
	if !ok {
		return mcp.NewToolResultError("'ids' must be a list"), nil
	}

	items, err := t.store.GetObservations(ids)
	if err != nil {
		return errorf("get observations failed: %v", err), nil
	}
	if items == nil {
		items = []memory.Observation{}
	}
	return jsonResult(items, map[string]any{"items": items})
}
