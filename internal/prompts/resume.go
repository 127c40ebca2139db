// Package prompts implements MCP prompt handlers for trae-mem.
//
// MCP prompts are user-triggered workflows (like slash commands). Unlike
// tools, which the assistant calls, prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// ResumePrompt handles the trae-mem-resume MCP prompt.
// It injects remembered context at the start of a new session.
type ResumePrompt struct {
	builder *inject.Builder
}

// NewResumePrompt creates a ResumePrompt.
func NewResumePrompt(builder *inject.Builder) *ResumePrompt {
	return &ResumePrompt{builder: builder}
}

// Definition returns the MCP prompt definition for registration.
func (p *ResumePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("trae-mem-resume",
		mcp.WithPromptDescription(
			"Resume work with context from previous sessions: recent session "+
				"summaries plus the observations most relevant to what you are about to do.",
		),
		mcp.WithArgument("query",
			mcp.ArgumentDescription("What this session is about (optional)"),
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project path to scope recent sessions (optional)"),
		),
	)
}

// Handle processes the trae-mem-resume prompt request.
func (p *ResumePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var query, project string
	if args := req.Params.Arguments; args != nil {
		query = args["query"]
		project = args["project"]
	}

	block, err := p.builder.Build(query, inject.DefaultLimit, project)
	if err != nil {
		return nil, fmt.Errorf("building resume context: %w", err)
	}
	block += "\n" + memory.TokenFooter(memory.EstimateTokens(block))

	return &mcp.GetPromptResult{
		Description: "trae-mem context",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Here is what trae-mem remembers from earlier sessions. " +
						"Treat it as background, verify anything you rely on, and use " +
						"trae_mem_search / trae_mem_timeline to dig deeper.\n\n" + block,
				),
			},
		},
	}, nil
}
