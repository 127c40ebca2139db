package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/HendryAvila/trae-mem/internal/memory"
)

const hookPrefix = "/hook/"

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeFailure maps an operation error onto a status code.
func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidKind), errors.Is(err, lifecycle.ErrUnknownEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, memory.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// queryInt parses an integer query parameter. ok is false (and a 400 has
// been written) when the value is present but not an integer.
func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, key+" must be an integer")
		return 0, false
	}
	return v, true
}

// readBody returns the request body as JSON. An empty body reads as {}.
// ok is false (and a 400 has been written) for malformed JSON.
func readBody(w http.ResponseWriter, r *http.Request) (gjson.Result, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return gjson.Result{}, false
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(data), true
}

// objectField decodes body[key] when it is a JSON object; otherwise nil.
func objectField(body gjson.Result, key string) map[string]any {
	f := body.Get(key)
	if !f.IsObject() {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(f.Raw), &m); err != nil {
		return nil
	}
	return m
}

// ─── GET ────────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Store.Stats()
	if err != nil {
		s.writeFailure(w, "health", err)
		return
	}
	resp := map[string]any{
		"ok":                   true,
		"db":                   s.app.Store.Path(),
		"sessions":             stats.Sessions,
		"observations":         stats.Observations,
		"private_observations": stats.PrivateObservations,
		"summaries":            stats.Summaries,
		"tokenizer":            stats.Tokenizer,
		"summarizer":           s.app.Summarizer.Strategy(),
	}
	if !s.startedAt.IsZero() {
		resp["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	hits, err := s.app.Store.Search(q, limit)
	if err != nil {
		s.writeFailure(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": hits})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	window, ok := queryInt(w, r, "window", 10)
	if !ok {
		return
	}
	id := r.URL.Query().Get("observation_id")
	items, err := s.app.Store.Timeline(id, window)
	if err != nil {
		s.writeFailure(w, "timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"observation_id": id, "items": items})
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", inject.DefaultLimit)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	text, err := s.app.Injector.Build(q, limit, r.URL.Query().Get("project"))
	if err != nil {
		s.writeFailure(w, "inject", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "context": text})
}

// ─── POST ───────────────────────────────────────────────────────────────────

func (s *Server) handleGetObservations(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	ids := []string{}
	if f := body.Get("ids"); f.Exists() && f.Type != gjson.Null {
		if !f.IsArray() {
			writeError(w, http.StatusBadRequest, "ids must be a list")
			return
		}
		for _, v := range f.Array() {
			ids = append(ids, v.String())
		}
	}
	items, err := s.app.Store.GetObservations(ids)
	if err != nil {
		s.writeFailure(w, "get_observations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	id, err := s.app.Service.StartSession(body.Get("project").String(), objectField(body, "meta"))
	if err != nil {
		s.writeFailure(w, "start_session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	p := lifecycle.LogParams{
		Session:  body.Get("session").String(),
		Kind:     body.Get("kind").String(),
		ToolName: body.Get("tool_name").String(),
		Text:     body.Get("text").String(),
		Tags:     objectField(body, "tags"),
	}
	if p.Session == "" || p.Text == "" {
		writeError(w, http.StatusBadRequest, "session and text are required")
		return
	}
	id, err := s.app.Service.Log(p)
	if err != nil {
		s.writeFailure(w, "log", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"observation_id": id})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	session := body.Get("session").String()
	if session == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}
	res, err := s.app.Service.EndSession(r.Context(), session)
	if err != nil {
		s.writeFailure(w, "end_session", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleHook accepts any body; malformed payloads are treated as {} by the
// lifecycle service, matching the hook command.
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request, event string) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	res, err := s.app.Service.HandleHookEvent(r.Context(), event, data)
	if err != nil {
		s.writeFailure(w, "hook", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
