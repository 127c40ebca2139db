// Package server wires the MCP tools, prompts and resources around an
// opened App and creates the server instance.
//
// This is the MCP composition root: no business logic lives here, only
// wiring.
package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/HendryAvila/trae-mem/internal/app"
	"github.com/HendryAvila/trae-mem/internal/memtools"
	"github.com/HendryAvila/trae-mem/internal/prompts"
	"github.com/HendryAvila/trae-mem/internal/resources"
	"github.com/mark3labs/mcp-go/server"
)

// Name is the MCP server name advertised to clients.
const Name = "trae-mem"

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts and
// resources registered. The App stays owned by the caller.
func New(a *app.App) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTools(s, a)

	// --- Register prompts ---

	resumePrompt := prompts.NewResumePrompt(a.Injector)
	s.AddPrompt(resumePrompt.Definition(), resumePrompt.Handle)

	handoffPrompt := prompts.NewHandoffPrompt()
	s.AddPrompt(handoffPrompt.Definition(), handoffPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(a.Store)
	s.AddResource(resourceHandler.RecentSessionsResource(), resourceHandler.HandleRecentSessions)

	return s
}

// ServeStdio runs the server over newline-delimited JSON-RPC on in/out
// until in is exhausted or ctx is cancelled. Transport errors go to the
// App's logger, never to out.
func ServeStdio(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(New(a))
	stdio.SetErrorLogger(slog.NewLogLogger(a.Logger.With("component", "mcp").Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// registerTools registers every trae_mem_* tool with the server.
func registerTools(s *server.MCPServer, a *app.App) {
	// --- Query & retrieval ---
	searchTool := memtools.NewSearchTool(a.Store)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	timelineTool := memtools.NewTimelineTool(a.Store)
	s.AddTool(timelineTool.Definition(), timelineTool.Handle)

	getObs := memtools.NewGetObservationsTool(a.Store)
	s.AddTool(getObs.Definition(), getObs.Handle)

	injectTool := memtools.NewInjectTool(a.Injector)
	s.AddTool(injectTool.Definition(), injectTool.Handle)

	// --- Session lifecycle ---
	sessionStart := memtools.NewSessionStartTool(a.Service)
	s.AddTool(sessionStart.Definition(), sessionStart.Handle)

	logTool := memtools.NewLogTool(a.Service)
	s.AddTool(logTool.Definition(), logTool.Handle)

	sessionEnd := memtools.NewSessionEndTool(a.Service)
	s.AddTool(sessionEnd.Definition(), sessionEnd.Handle)

	hookEvent := memtools.NewHookEventTool(a.Service)
	s.AddTool(hookEvent.Definition(), hookEvent.Handle)

	// --- Management ---
	statsTool := memtools.NewStatsTool(a.Store)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	deleteSession := memtools.NewDeleteSessionTool(a.Service)
	s.AddTool(deleteSession.Definition(), deleteSession.Handle)
}

// serverInstructions returns the system instructions that tell the
// assistant how to use trae-mem.
func serverInstructions() string {
	return `You have access to trae-mem, a persistent memory of previous coding sessions.

## Retrieval (progressive disclosure)
1. trae_mem_search: find relevant observations (ids + snippets, cheap)
2. trae_mem_timeline: look at what happened around one observation
3. trae_mem_get_observations: fetch full records only for the ids you need
trae_mem_inject builds a ready-made context block for a new session.

## Recording
- trae_mem_start_session once per session; keep the returned id
- trae_mem_log for user requests (user), tool calls (tool), decisions (decision),
  failures (error) and anything else (note)
- trae_mem_end_session when the work is done; it writes brief and detailed summaries
- IDE lifecycle payloads can be forwarded as-is with trae_mem_hook_event

## Privacy
Wrap secrets in <private>...</private>. Private spans are never stored, indexed
or sent to a summarization provider.`
}
