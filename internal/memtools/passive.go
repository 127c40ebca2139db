package memtools

import (
	"context"
	"encoding/json"

	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
)

// HookEventTool handles the trae_mem_hook_event MCP tool. It accepts the
// same payloads the IDE hook command reads from stdin.
type HookEventTool struct {
	svc *lifecycle.Service
}

// NewHookEventTool creates a HookEventTool.
func NewHookEventTool(svc *lifecycle.Service) *HookEventTool {
	return &HookEventTool{svc: svc}
}

// Definition returns the MCP tool definition for trae_mem_hook_event.
func (t *HookEventTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_hook_event",
		mcp.WithDescription(
			"Feed one IDE lifecycle event into memory. The payload has the same shape as the "+
				"hook stdin JSON (session_id, cwd, prompt, tool_name, tool_input, tool_response, "+
				"reason, transcript_path, source). SessionEnd also writes the summaries.",
		),
		mcp.WithString("event",
			mcp.Required(),
			mcp.Description("Lifecycle event name"),
			mcp.Enum(lifecycle.Events()...),
		),
		mcp.WithObject("payload",
			mcp.Required(),
			mcp.Description("Event payload"),
		),
	)
}

// Handle processes the trae_mem_hook_event tool call. A payload that is not
// an object is treated as {}.
func (t *HookEventTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	event := req.GetString("event", "")
	if event == "" {
		return mcp.NewToolResultError("'event' is required"), nil
	}

	payload := []byte("{}")
	if obj := objectArg(req, "payload"); obj != nil {
		data, err := json.Marshal(obj)
		if err != nil {
			return errorf("invalid payload: %v", err), nil
		}
		payload = data
	}

	res, err := t.svc.HandleHookEvent(ctx, event, payload)
	if err != nil {
		return errorf("hook event failed: %v", err), nil
	}
	return jsonResult(res, res)
}
