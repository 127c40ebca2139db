package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/HendryAvila/trae-mem/internal/redact"
)

// ErrUnknownEvent is returned by HandleHookEvent for an unrecognized event.
var ErrUnknownEvent = errors.New("lifecycle: unknown hook event")

// Hook event names emitted by the host IDE.
const (
	EventSessionStart     = "SessionStart"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventStop             = "Stop"
	EventSessionEnd       = "SessionEnd"
)

// Events returns every supported hook event.
func Events() []string {
	return []string{
		EventSessionStart, EventUserPromptSubmit, EventPreToolUse,
		EventPostToolUse, EventStop, EventSessionEnd,
	}
}

// Clip lengths for generated hook notes.
const (
	preToolClip     = 1800
	postToolInClip  = 2000
	postToolOutClip = 4000
	stopClip        = 600
	sessionEndClip  = 1200
)

// HookResult reports what a hook event touched.
type HookResult struct {
	Event         string     `json:"event"`
	SessionID     string     `json:"session_id"`
	ObservationID string     `json:"observation_id,omitempty"`
	Ended         *EndResult `json:"ended,omitempty"`
}

// hookPayload is the subset of the host payload the handlers read.
type hookPayload struct {
	raw        gjson.Result
	externalID string
	project    string
}

func parsePayload(payload []byte) hookPayload {
	if !gjson.ValidBytes(payload) {
		payload = []byte("{}")
	}
	raw := gjson.ParseBytes(payload)
	return hookPayload{
		raw:        raw,
		externalID: raw.Get("session_id").String(),
		project:    raw.Get("cwd").String(),
	}
}

func (p hookPayload) str(field string) string { return p.raw.Get(field).String() }

// jsonField renders a payload field as compact JSON, or fallback when the
// field is absent or null.
func (p hookPayload) jsonField(field, fallback string) string {
	r := p.raw.Get(field)
	if !r.Exists() || r.Type == gjson.Null {
		return fallback
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(r.Raw)); err != nil {
		return r.Raw
	}
	return buf.String()
}

// HandleHookEvent applies one host lifecycle event. A payload that is not a
// JSON object is treated as empty.
func (s *Service) HandleHookEvent(ctx context.Context, event string, payload []byte) (*HookResult, error) {
	p := parsePayload(payload)
	res := &HookResult{Event: event}

	resolve := func(meta map[string]any) error {
		id, err := s.sessions.ResolveOrCreate(p.externalID, p.project, meta, s.store)
		res.SessionID = id
		return err
	}

	var err error
	switch event {
	case EventSessionStart:
		err = resolve(map[string]any{"source": p.str("source")})

	case EventUserPromptSubmit:
		if err = resolve(nil); err == nil {
			res.ObservationID, err = s.record(res.SessionID, KindUser, "", strings.TrimSpace(p.str("prompt")), nil)
		}

	case EventPreToolUse:
		tool := p.str("tool_name")
		text := fmt.Sprintf("准备执行 %s 输入=%s", tool, p.jsonField("tool_input", "{}"))
		if err = resolve(nil); err == nil {
			res.ObservationID, err = s.recordClipped(res.SessionID, KindNote, tool, text, preToolClip)
		}

	case EventPostToolUse:
		tool := p.str("tool_name")
		in := memory.Clip(redact.Strip(p.jsonField("tool_input", "null")), postToolInClip)
		out := memory.Clip(redact.Strip(p.jsonField("tool_response", "null")), postToolOutClip)
		if err = resolve(nil); err == nil {
			res.ObservationID, err = s.record(res.SessionID, KindTool, tool, "输入="+in+"\n输出="+out, nil)
		}

	case EventStop:
		text := "停止，原因=" + p.str("reason")
		if err = resolve(nil); err == nil {
			res.ObservationID, err = s.recordClipped(res.SessionID, KindNote, "", text, stopClip)
		}

	case EventSessionEnd:
		if err = resolve(nil); err != nil {
			break
		}
		text := fmt.Sprintf("结束，原因=%s transcript=%s", p.str("reason"), p.str("transcript_path"))
		if res.ObservationID, err = s.recordClipped(res.SessionID, KindNote, "", text, sessionEndClip); err == nil {
			res.Ended, err = s.EndSession(ctx, res.SessionID)
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	if err != nil {
		return nil, fmt.Errorf("lifecycle: %s: %w", event, err)
	}
	s.logger.Debug("hook event handled", "event", event, "session", res.SessionID)
	return res, nil
}

// recordClipped redacts text before clipping it to limit runes, so a clip
// can never cut the closing tag off a private span.
func (s *Service) recordClipped(session, kind, toolName, text string, limit int) (string, error) {
	content, private := redact.Apply(text)
	return s.store.AddObservation(memory.AddObservationParams{
		SessionID: session,
		Kind:      kind,
		ToolName:  toolName,
		Content:   memory.Clip(content, limit),
		Private:   private,
	})
}
