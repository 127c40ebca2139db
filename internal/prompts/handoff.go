package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// HandoffPrompt handles the trae-mem-handoff MCP prompt.
// It instructs the assistant to record the session's outcome and close it.
type HandoffPrompt struct{}

// NewHandoffPrompt creates a HandoffPrompt.
func NewHandoffPrompt() *HandoffPrompt {
	return &HandoffPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *HandoffPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("trae-mem-handoff",
		mcp.WithPromptDescription(
			"Wrap up the current session: log the decisions and open problems, "+
				"then end the session so its summaries are available next time.",
		),
		mcp.WithArgument("session",
			mcp.ArgumentDescription("Session id to close (from trae_mem_start_session)"),
		),
	)
}

// Handle processes the trae-mem-handoff prompt request.
func (p *HandoffPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	session := "<session id>"
	if args := req.Params.Arguments; args != nil {
		if s, ok := args["session"]; ok && s != "" {
			session = s
		}
	}

	return &mcp.GetPromptResult{
		Description: "trae-mem handoff",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"We are wrapping up. Using session `" + session + "`:\n\n" +
						"1. Call `trae_mem_log` with kind=decision for each decision we made, one per call\n" +
						"2. Call `trae_mem_log` with kind=error for anything still failing or risky\n" +
						"3. Wrap secrets in <private>...</private>; they will not be stored\n" +
						"4. Call `trae_mem_end_session` and show me the brief summary it returns",
				),
			},
		},
	}, nil
}
