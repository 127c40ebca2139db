// Package lifecycle implements the session use cases shared by every
// transport: start a session, log an observation, end a session with
// summaries, and translate host IDE hook events into those steps.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/trae-mem/internal/bridge"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/HendryAvila/trae-mem/internal/redact"
	"github.com/HendryAvila/trae-mem/internal/summarize"
)

// ErrInvalidKind is returned by Log for a kind outside Kinds().
var ErrInvalidKind = errors.New("lifecycle: invalid observation kind")

// Canonical observation kinds accepted from callers.
const (
	KindUser     = "user"
	KindTool     = "tool"
	KindNote     = "note"
	KindDecision = "decision"
	KindError    = "error"
)

// Kinds returns the kinds accepted by Log, in display order.
func Kinds() []string {
	return []string{KindUser, KindTool, KindNote, KindDecision, KindError}
}

// ValidKind reports whether kind is accepted by Log.
func ValidKind(kind string) bool {
	for _, k := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Service wires the store, session map and summarizer together.
type Service struct {
	store      *memory.Store
	sessions   *bridge.Map
	summarizer *summarize.Summarizer
	logger     *slog.Logger
}

// New creates a Service. A nil summarizer uses the heuristic only.
func New(store *memory.Store, sessions *bridge.Map, summarizer *summarize.Summarizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if summarizer == nil {
		summarizer = summarize.New(summarize.Config{}, logger)
	}
	return &Service{
		store:      store,
		sessions:   sessions,
		summarizer: summarizer,
		logger:     logger.With("component", "lifecycle"),
	}
}

// Store returns the underlying store.
func (s *Service) Store() *memory.Store { return s.store }

// StartSession creates a new session.
func (s *Service) StartSession(project string, meta map[string]any) (string, error) {
	id, err := s.store.NewSession(project, meta)
	if err != nil {
		return "", err
	}
	s.logger.Debug("session started", "session", id, "project", project)
	return id, nil
}

// LogParams describes an observation coming from a caller.
type LogParams struct {
	Session  string
	Kind     string
	ToolName string
	Text     string
	Tags     map[string]any
}

// Log redacts Text and stores it as an observation.
func (s *Service) Log(p LogParams) (string, error) {
	if !ValidKind(p.Kind) {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrInvalidKind, p.Kind, Kinds())
	}
	return s.record(p.Session, p.Kind, p.ToolName, p.Text, p.Tags)
}

func (s *Service) record(session, kind, toolName, text string, tags map[string]any) (string, error) {
	content, private := redact.Apply(text)
	return s.store.AddObservation(memory.AddObservationParams{
		SessionID: session,
		Kind:      kind,
		ToolName:  toolName,
		Content:   content,
		Tags:      tags,
		Private:   private,
	})
}

// EndResult reports the summaries written by EndSession.
type EndResult struct {
	SessionID  string `json:"session_id"`
	BriefID    string `json:"brief_id"`
	DetailedID string `json:"detailed_id"`
	Brief      string `json:"brief"`
	Detailed   string `json:"detailed"`
}

// EndSession stamps the session ended and stores a brief and a detailed
// summary of its non-private observations. Summarization never fails the
// call; storage errors do.
func (s *Service) EndSession(ctx context.Context, session string) (*EndResult, error) {
	if err := s.store.EndSession(session); err != nil {
		return nil, err
	}
	obs, err := s.store.ObservationsBySession(session, 0)
	if err != nil {
		return nil, err
	}
	entries := summarize.FromObservations(obs)

	res := &EndResult{SessionID: session}
	res.Brief = s.summarizer.Summarize(ctx, entries, memory.BudgetFor(memory.LevelBrief))
	if res.BriefID, err = s.store.AddSummary(session, memory.LevelBrief, res.Brief); err != nil {
		return nil, err
	}
	res.Detailed = s.summarizer.Summarize(ctx, entries, memory.BudgetFor(memory.LevelDetailed))
	if res.DetailedID, err = s.store.AddSummary(session, memory.LevelDetailed, res.Detailed); err != nil {
		return nil, err
	}

	s.logger.Debug("session ended", "session", session, "observations", len(obs), "summarizer", s.summarizer.Strategy())
	return res, nil
}

// DeleteSession removes a session and everything recorded under it, then
// drops any session-map entries still pointing at it so later host events
// for the same external session start a fresh one.
func (s *Service) DeleteSession(session string) error {
	if err := s.store.DeleteSession(session); err != nil {
		return err
	}
	n, err := s.sessions.Forget(session)
	if err != nil {
		return fmt.Errorf("lifecycle: forget session %q: %w", session, err)
	}
	s.logger.Debug("session deleted", "session", session, "mappings", n)
	return nil
}
