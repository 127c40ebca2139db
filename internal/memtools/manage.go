package memtools

import (
	"context"
	"errors"
	"fmt"

	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── DeleteSessionTool ──────────────────────────────────────────────────────

// DeleteSessionTool handles the trae_mem_delete_session MCP tool.
type DeleteSessionTool struct {
	svc *lifecycle.Service
}

// NewDeleteSessionTool creates a DeleteSessionTool. Deleting through the
// service also drops the session's external-id mappings.
func NewDeleteSessionTool(svc *lifecycle.Service) *DeleteSessionTool {
	return &DeleteSessionTool{svc: svc}
}

// Definition returns the MCP tool definition for trae_mem_delete_session.
func (t *DeleteSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("trae_mem_delete_session",
		mcp.WithDescription(
			"Permanently delete a session together with its observations and summaries. "+
				"Requires confirm=true.",
		),
		mcp.WithString("session",
			mcp.Required(),
			mcp.Description("Session id to delete"),
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true"),
		),
	)
}

// Handle processes the trae_mem_delete_session tool call.
func (t *DeleteSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := req.GetString("session", "")
	if session == "" {
		return mcp.NewToolResultError("'session' is required"), nil
	}
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("deletion is permanent; pass confirm=true"), nil
	}

	err := t.svc.DeleteSession(session)
	if errors.Is(err, memory.ErrSessionNotFound) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return errorf("failed to delete session: %v", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %q deleted", session)), nil
}
