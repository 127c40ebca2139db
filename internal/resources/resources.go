// Package resources implements MCP resource handlers for trae-mem.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (trae-mem://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// RecentSessionsURI addresses the recent-sessions resource.
const RecentSessionsURI = "trae-mem://sessions/recent"

// recentLimit is how many sessions the resource lists.
const recentLimit = 10

// SessionReader is the read-only store slice the handler needs.
type SessionReader interface {
	RecentSessions(project string, limit int) ([]memory.Session, error)
	LatestSummary(sessionID, level string) (*memory.Summary, error)
}

// Handler manages trae-mem resource endpoints.
type Handler struct {
	store SessionReader
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store SessionReader) *Handler {
	return &Handler{store: store}
}

// RecentSessionsResource returns the MCP resource definition for recent sessions.
func (h *Handler) RecentSessionsResource() mcp.Resource {
	return mcp.NewResource(
		RecentSessionsURI,
		"Recent trae-mem sessions",
		mcp.WithResourceDescription("The most recently started sessions with their latest brief summary"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRecentSessions returns the recent sessions as JSON.
func (h *Handler) HandleRecentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	digests, err := recentDigests(h.store, recentLimit)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling sessions: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
