package memtools

import (
	"context"

	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
)

// SessionStartTool handles the trae_mem_start_session MCP tool.
type SessionStartTool struct {
	svc *lifecycle.Service
}

// NewSessionStartTool creates a SessionStartTool.
func NewSessionStartTool(svc *lifecycle.Service) *SessionStartTool {
	return &SessionStartTool{svc: svc}
}

// Definition returns the MCP tool definition for trae_mem_start_session.
func (t *SessionStartTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_start_session",
		mcp.WithDescription(
			"Create a persistent session. Returns the session id to pass to trae_mem_log "+
				"and trae_mem_end_session.",
		),
		mcp.WithString("project",
			mcp.Description("Project path the session belongs to (omit for an unscoped session)"),
		),
		mcp.WithObject("meta",
			mcp.Description("Free-form metadata stored with the session"),
		),
	)
}

// Handle processes the trae_mem_start_session tool call. A meta value that
// is not an object is stored as {}.
func (t *SessionStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := t.svc.StartSession(req.GetString("project", ""), objectArg(req, "meta"))
	if err != nil {
		return errorf("failed to start session: %v", err), nil
	}
	return mcp.NewToolResultStructured(map[string]any{"session_id": id}, id), nil
}

// ─── SessionEndTool ─────────────────────────────────────────────────────────

// SessionEndTool handles the trae_mem_end_session MCP tool.
type SessionEndTool struct {
	svc *lifecycle.Service
}

// NewSessionEndTool creates a SessionEndTool.
func NewSessionEndTool(svc *lifecycle.Service) *SessionEndTool {
	return &SessionEndTool{svc: svc}
}

// Definition returns the MCP tool definition for trae_mem_end_session.
func (t *SessionEndTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_end_session",
		mcp.WithDescription(
			"End a session and generate its brief and detailed summaries. "+
				"Private observations never reach the summaries.",
		),
		mcp.WithString("session",
			mcp.Required(),
			mcp.Description("Session id to close"),
		),
	)
}

// Handle processes the trae_mem_end_session tool call.
func (t *SessionEndTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := req.GetString("session", "")
	if session == "" {
		return mcp.NewToolResultError("'session' is required"), nil
	}

	res, err := t.svc.EndSession(ctx, session)
	if err != nil {
		return errorf("failed to end session: %v", err), nil
	}
	return jsonResult(res, res)
}
