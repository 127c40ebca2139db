package memtools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/trae-mem/internal/bridge"
	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/HendryAvila/trae-mem/internal/summarize"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

type deps struct {
	store *memory.Store
	svc   *lifecycle.Service
}

// newDeps creates a store, session map and service in a temp directory.
func newDeps(t *testing.T) deps {
	t.Helper()
	dir := t.TempDir()
	store, err := memory.New(memory.Config{DBPath: filepath.Join(dir, "trae_mem.sqlite3")})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := lifecycle.New(store, bridge.New(filepath.Join(dir, "session_map.json")), summarize.New(summarize.Config{}, logger), logger)
	return deps{store: store, svc: svc}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r == nil {
		t.Fatal("nil result")
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

func mustToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r == nil || !r.IsError {
		t.Fatalf("expected tool error, got: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error %q should mention %q", resultText(r), wantSubstr)
	}
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, resultText(r))
	}
	return v
}

// seed starts a session in /tmp/p with a user prompt and a tool call.
func seed(t *testing.T, d deps) (sid, first, second string) {
	t.Helper()
	sid, err := d.svc.StartSession("/tmp/p", nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	first, err = d.svc.Log(lifecycle.LogParams{Session: sid, Kind: lifecycle.KindUser, Text: "我要实现预加载策略"})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	second, err = d.svc.Log(lifecycle.LogParams{Session: sid, Kind: lifecycle.KindTool, ToolName: "Grep", Text: "搜索 preload"})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	return sid, first, second
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	d := newDeps(t)
	tests := []struct {
		def      mcp.Tool
		name     string
		required []string
	}{
		{NewSearchTool(d.store).Definition(), "trae_mem_search", []string{"query"}},
		{NewTimelineTool(d.store).Definition(), "trae_mem_timeline", []string{"observation_id"}},
		{NewGetObservationsTool(d.store).Definition(), "trae_mem_get_observations", []string{"ids"}},
		{NewInjectTool(inject.New(d.store)).Definition(), "trae_mem_inject", []string{"query"}},
		{NewSessionStartTool(d.svc).Definition(), "trae_mem_start_session", nil},
		{NewLogTool(d.svc).Definition(), "trae_mem_log", []string{"session", "kind", "text"}},
		{NewSessionEndTool(d.svc).Definition(), "trae_mem_end_session", []string{"session"}},
		{NewHookEventTool(d.svc).Definition(), "trae_mem_hook_event", []string{"event", "payload"}},
		{NewStatsTool(d.store).Definition(), "trae_mem_stats", nil},
		{NewDeleteSessionTool(d.svc).Definition(), "trae_mem_delete_session", []string{"session", "confirm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.def.Name != tt.name {
				t.Errorf("tool name = %q, want %q", tt.def.Name, tt.name)
			}
			if tt.def.Description == "" {
				t.Error("description should not be empty")
			}
			for _, r := range tt.required {
				if _, ok := tt.def.InputSchema.Properties[r]; !ok {
					t.Errorf("missing %q parameter", r)
				}
				found := false
				for _, req := range tt.def.InputSchema.Required {
					if req == r {
						found = true
					}
				}
				if !found {
					t.Errorf("%q should be required", r)
				}
			}
		})
	}
}

func TestLogTool_KindEnum(t *testing.T) {
	def := NewLogTool(nil).Definition()
	prop, ok := def.InputSchema.Properties["kind"].(map[string]any)
	if !ok {
		t.Fatalf("kind property has unexpected shape: %#v", def.InputSchema.Properties["kind"])
	}
	enum, _ := prop["enum"].([]string)
	if strings.Join(enum, ",") != "user,tool,note,decision,error" {
		t.Errorf("kind enum = %v", prop["enum"])
	}
}

// ─── Search ──────────────────────────────────────────────────────────────────

func TestSearchTool(t *testing.T) {
	d := newDeps(t)
	_, first, _ := seed(t, d)
	tool := NewSearchTool(d.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "预加载"}))
	mustNotError(t, result, err)

	hits := decode[[]memory.SearchHit](t, result)
	if len(hits) == 0 || hits[0].ID != first {
		t.Fatalf("expected first hit %s, got %+v", first, hits)
	}
	if result.StructuredContent == nil {
		t.Error("structured content should carry the results")
	}
}

func TestSearchTool_NoResultsIsEmptyList(t *testing.T) {
	d := newDeps(t)
	result, err := NewSearchTool(d.store).Handle(context.Background(), makeReq(map[string]interface{}{"query": "nothing-matches"}))
	mustNotError(t, result, err)
	if got := strings.TrimSpace(resultText(result)); got != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestSearchTool_Validation(t *testing.T) {
	d := newDeps(t)
	tool := NewSearchTool(d.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustToolError(t, result, err, "query")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "x", "limit": "ten"}))
	mustToolError(t, result, err, "limit")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "x", "limit": 2.5}))
	mustToolError(t, result, err, "limit")
}

// ─── Timeline & GetObservations ──────────────────────────────────────────────

func TestTimelineTool(t *testing.T) {
	d := newDeps(t)
	_, first, second := seed(t, d)
	tool := NewTimelineTool(d.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"observation_id": second,
		"window":         float64(60),
	}))
	mustNotError(t, result, err)

	items := decode[[]memory.Observation](t, result)
	if len(items) != 2 || items[0].ID != first || items[1].ID != second {
		t.Errorf("unexpected timeline: %+v", items)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"observation_id": "missing"}))
	mustNotError(t, result, err)
	if got := strings.TrimSpace(resultText(result)); got != "[]" {
		t.Errorf("unknown anchor should yield [], got %s", got)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustToolError(t, result, err, "observation_id")
}

func TestGetObservationsTool(t *testing.T) {
	d := newDeps(t)
	_, first, second := seed(t, d)
	tool := NewGetObservationsTool(d.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"ids": []interface{}{second, "missing", first},
	}))
	mustNotError(t, result, err)

	items := decode[[]memory.Observation](t, result)
	if len(items) != 2 || items[0].ID != first || items[1].ID != second {
		t.Errorf("expected [first, second] by time, got %+v", items)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"ids": first}))
	mustToolError(t, result, err, "must be a list")
}

// ─── Inject ──────────────────────────────────────────────────────────────────

func TestInjectTool(t *testing.T) {
	d := newDeps(t)
	seed(t, d)
	tool := NewInjectTool(inject.New(d.store))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query":   "预加载",
		"project": "/tmp/p",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.HasPrefix(text, "【trae-mem 注入上下文】") {
		t.Errorf("missing header:\n%s", text)
	}
	if !strings.Contains(text, "我要实现预加载策略") {
		t.Errorf("relevant observation missing:\n%s", text)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "x", "limit": "many"}))
	mustToolError(t, result, err, "limit")
}

// ─── Sessions & Log ──────────────────────────────────────────────────────────

func TestSessionStartTool(t *testing.T) {
	d := newDeps(t)
	tool := NewSessionStartTool(d.svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"project": "/tmp/p",
		"meta":    map[string]interface{}{"ide": "trae"},
	}))
	mustNotError(t, result, err)

	sid := resultText(result)
	if len(sid) != 32 {
		t.Fatalf("expected 32-char session id, got %q", sid)
	}
	sess, err := d.store.GetSession(sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Meta["ide"] != "trae" {
		t.Errorf("meta not stored: %+v", sess.Meta)
	}

	// A non-object meta is stored as {}.
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"meta": "oops"}))
	mustNotError(t, result, err)
	sess, err = d.store.GetSession(resultText(result))
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(sess.Meta) != 0 || sess.ProjectPath != nil {
		t.Errorf("expected unscoped session with empty meta, got %+v", sess)
	}
}

func TestLogTool(t *testing.T) {
	d := newDeps(t)
	sid, _, _ := seed(t, d)
	tool := NewLogTool(d.svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"session": sid,
		"kind":    "decision",
		"text":    "use trigram <private>key=abc</private>",
		"tags":    map[string]interface{}{"area": "search"},
	}))
	mustNotError(t, result, err)

	obs, err := d.store.GetObservations([]string{resultText(result)})
	if err != nil || len(obs) != 1 {
		t.Fatalf("GetObservations: %v %v", obs, err)
	}
	if obs[0].Content != "use trigram" || obs[0].Private {
		t.Errorf("redaction not applied: %+v", obs[0])
	}
	if obs[0].Tags["area"] != "search" {
		t.Errorf("tags not stored: %+v", obs[0].Tags)
	}
}

func TestLogTool_Validation(t *testing.T) {
	d := newDeps(t)
	sid, _, _ := seed(t, d)
	tool := NewLogTool(d.svc)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing session", map[string]interface{}{"kind": "note", "text": "x"}, "session"},
		{"missing text", map[string]interface{}{"session": sid, "kind": "note"}, "text"},
		{"bad kind", map[string]interface{}{"session": sid, "kind": "benchmark", "text": "x"}, "invalid observation kind"},
		{"unknown session", map[string]interface{}{"session": "ghost", "kind": "note", "text": "x"}, "session not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), makeReq(tt.args))
			mustToolError(t, result, err, tt.want)
		})
	}
}

func TestSessionEndTool(t *testing.T) {
	d := newDeps(t)
	sid, _, _ := seed(t, d)
	tool := NewSessionEndTool(d.svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"session": sid}))
	mustNotError(t, result, err)

	res := decode[lifecycle.EndResult](t, result)
	if res.SessionID != sid || res.Brief == "" || res.Detailed == "" {
		t.Errorf("unexpected end result: %+v", res)
	}
	if !strings.Contains(res.Brief, "Grep: 搜索 preload") {
		t.Errorf("brief should mention the tool action:\n%s", res.Brief)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"session": "ghost"}))
	mustToolError(t, result, err, "session not found")
}

// ─── Hook events ─────────────────────────────────────────────────────────────

func TestHookEventTool(t *testing.T) {
	d := newDeps(t)
	tool := NewHookEventTool(d.svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"event":   "UserPromptSubmit",
		"payload": map[string]interface{}{"session_id": "ext", "cwd": "/tmp/p", "prompt": "hello"},
	}))
	mustNotError(t, result, err)

	res := decode[lifecycle.HookResult](t, result)
	if res.SessionID == "" || res.ObservationID == "" {
		t.Fatalf("incomplete hook result: %+v", res)
	}

	// Non-object payloads are treated as empty.
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"event":   "Stop",
		"payload": "garbage",
	}))
	mustNotError(t, result, err)

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"event":   "Compact",
		"payload": map[string]interface{}{},
	}))
	mustToolError(t, result, err, "unknown hook event")
}

// ─── Stats & Delete ──────────────────────────────────────────────────────────

func TestStatsTool(t *testing.T) {
	d := newDeps(t)
	seed(t, d)

	result, err := NewStatsTool(d.store).Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	stats := decode[memory.Stats](t, result)
	if stats.Sessions != 1 || stats.Observations != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDeleteSessionTool(t *testing.T) {
	d := newDeps(t)
	sid, first, _ := seed(t, d)
	tool := NewDeleteSessionTool(d.svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"session": sid}))
	mustToolError(t, result, err, "confirm")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"session": sid, "confirm": true}))
	mustNotError(t, result, err)

	obs, err := d.store.GetObservations([]string{first})
	if err != nil {
		t.Fatalf("GetObservations: %v", err)
	}
	if len(obs) != 0 {
		t.Error("observations should be deleted with the session")
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"session": sid, "confirm": true}))
	mustToolError(t, result, err, "session not found")
}

func TestDeleteSessionTool_LaterHookStartsNewSession(t *testing.T) {
	d := newDeps(t)
	payload := []byte(`{"session_id":"ext","cwd":"/tmp/p","prompt":"hello"}`)
	first, err := d.svc.HandleHookEvent(context.Background(), lifecycle.EventUserPromptSubmit, payload)
	if err != nil {
		t.Fatalf("hook: %v", err)
	}

	result, err := NewDeleteSessionTool(d.svc).Handle(context.Background(),
		makeReq(map[string]interface{}{"session": first.SessionID, "confirm": true}))
	mustNotError(t, result, err)

	second, err := d.svc.HandleHookEvent(context.Background(), lifecycle.EventUserPromptSubmit, payload)
	if err != nil {
		t.Fatalf("hook after delete: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Errorf("hook reused deleted session %s", first.SessionID)
	}
}
