package memtools

import (
	"context"
	"errors"

	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// LogTool handles the trae_mem_log MCP tool.
type LogTool struct {
	svc *lifecycle.Service
}

// NewLogTool creates a LogTool.
func NewLogTool(svc *lifecycle.Service) *LogTool {
	return &LogTool{svc: svc}
}

// Definition returns the MCP tool definition for trae_mem_log.
func (t *LogTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_log",
		mcp.WithDescription(
			"Record one observation (user input, tool call, decision, error) in a session. "+
				"Text inside <private>...</private> is never stored; a fully private text is "+
				"kept as a [PRIVATE] placeholder excluded from search.",
		),
		mcp.WithString("session",
			mcp.Required(),
			mcp.Description("Session id from trae_mem_start_session"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Observation kind"),
			mcp.Enum(lifecycle.Kinds()...),
		),
		mcp.WithString("tool_name",
			mcp.Description("Tool that produced the observation, if any"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Observation text"),
		),
		mcp.WithObject("tags",
			mcp.Description("Free-form tags stored with the observation"),
		),
	)
}

// Handle processes the trae_mem_log tool call.
func (t *LogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := req.GetString("session", "")
	if session == "" {
		return mcp.NewToolResultError("'session' is required"), nil
	}
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	id, err := t.svc.Log(lifecycle.LogParams{
		Session:  session,
		Kind:     req.GetString("kind", ""),
		ToolName: req.GetString("tool_name", ""),
		Text:     text,
		Tags:     objectArg(req, "tags"),
	})
	switch {
	case errors.Is(err, lifecycle.ErrInvalidKind), errors.Is(err, memory.ErrSessionNotFound):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		return errorf("failed to log observation: %v", err), nil
	}
	return mcp.NewToolResultStructured(map[string]any{"observation_id": id}, id), nil
}
