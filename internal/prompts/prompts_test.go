package prompts

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Messages[0].Content)
	}
	return tc.Text
}

func TestResumePrompt(t *testing.T) {
	store, err := memory.New(memory.Config{DBPath: filepath.Join(t.TempDir(), "m.sqlite3")})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sid, err := store.NewSession("/tmp/p", nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := store.AddObservation(memory.AddObservationParams{SessionID: sid, Kind: "user", Content: "预加载策略"}); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}

	p := NewResumePrompt(inject.New(store))
	if p.Definition().Name != "trae-mem-resume" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"query": "预加载", "project": "/tmp/p"}
	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := promptText(t, res)
	for _, want := range []string{"【trae-mem 注入上下文】", sid, "预加载策略", "tokens"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}
}

func TestHandoffPrompt(t *testing.T) {
	p := NewHandoffPrompt()
	if p.Definition().Name != "trae-mem-handoff" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	res, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(promptText(t, res), "<session id>") {
		t.Error("default placeholder missing")
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"session": "abc123"}
	res, _ = p.Handle(context.Background(), req)
	text := promptText(t, res)
	if !strings.Contains(text, "`abc123`") || !strings.Contains(text, "trae_mem_end_session") {
		t.Errorf("unexpected handoff text:\n%s", text)
	}
}
