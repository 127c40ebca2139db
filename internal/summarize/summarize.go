// Package summarize turns a session's observations into a bounded-length
// digest. A deterministic heuristic is always available; model-assisted
// strategies (Anthropic, OpenAI) can be configured in front of it and fall
// back to the heuristic on any failure.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/HendryAvila/trae-mem/internal/redact"
)

// Provider names accepted by Config.Provider.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Defaults for model-assisted strategies.
const (
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultOpenAIModel    = "gpt-4.1-mini"
	DefaultTimeout        = 30 * time.Second
	MaxTokens             = 800
)

var (
	// ErrMissingCredential is returned when a provider is selected without an API key.
	ErrMissingCredential = errors.New("summarize: missing provider credential")
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("summarize: provider returned empty text")
)

// Entry is one observation as seen by a summarization strategy.
type Entry struct {
	TS       int64
	Kind     string
	ToolName string
	Content  string
}

// FromObservations converts stored observations to entries, dropping
// private ones.
func FromObservations(obs []memory.Observation) []Entry {
	out := make([]Entry, 0, len(obs))
	for _, o := range obs {
		if o.Private {
			continue
		}
		e := Entry{TS: o.TS, Kind: o.Kind, Content: o.Content}
		if o.ToolName != nil {
			e.ToolName = *o.ToolName
		}
		out = append(out, e)
	}
	return out
}

// Strategy produces a digest of entries within budget runes.
type Strategy interface {
	Name() string
	Summarize(ctx context.Context, entries []Entry, budget int) (string, error)
}

// Config selects and configures the model-assisted strategy.
type Config struct {
	Provider string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Timeout bounds a single provider call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Summarizer runs the configured strategy and falls back to the heuristic.
// Summarize never returns an error.
type Summarizer struct {
	primary   Strategy
	heuristic Heuristic
	timeout   time.Duration
	logger    *slog.Logger
}

// New builds a Summarizer from cfg. A provider that cannot be constructed
// (unknown name, missing key) is kept as a failing strategy so every call
// logs the cause and falls back.
func New(cfg Config, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Summarizer{
		timeout: cfg.Timeout,
		logger:  logger.With("component", "summarizer"),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	var err error
	switch provider {
	case "", ProviderNone:
		return s
	case ProviderAnthropic:
		s.primary, err = NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
	case ProviderOpenAI:
		s.primary, err = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	default:
		err = fmt.Errorf("summarize: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		s.logger.Warn("summarizer provider unavailable, heuristic will be used", "provider", provider, "error", err)
		s.primary = failing{name: provider, err: err}
	}
	return s
}

// NewWithStrategy wraps an arbitrary primary strategy.
func NewWithStrategy(primary Strategy, timeout time.Duration, logger *slog.Logger) *Summarizer {
	s := New(Config{Timeout: timeout}, logger)
	s.primary = primary
	return s
}

// Strategy returns the name of the strategy tried first.
func (s *Summarizer) Strategy() string {
	if s.primary == nil {
		return s.heuristic.Name()
	}
	return s.primary.Name()
}

// Summarize returns a digest of at most budget runes. Empty input (after
// private spans are removed) yields "" without calling a provider.
func (s *Summarizer) Summarize(ctx context.Context, entries []Entry, budget int) string {
	if !hasContent(entries) {
		return ""
	}
	if s.primary == nil {
		out, _ := s.heuristic.Summarize(ctx, entries, budget)
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.primary.Summarize(callCtx, entries, budget)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyResponse
	}
	if err == nil {
		return memory.Clip(strings.TrimSpace(out), budget)
	}

	s.logger.Warn("summarizer failed, using heuristic", "strategy", s.primary.Name(), "error", err)
	out, _ = s.heuristic.Summarize(ctx, entries, budget)
	return out
}

func hasContent(entries []Entry) bool {
	for _, e := range entries {
		if redact.Strip(e.Content) != "" {
			return true
		}
	}
	return false
}

// failing is a placeholder for a provider that could not be configured.
type failing struct {
	name string
	err  error
}

func (f failing) Name() string { return f.name }

func (f failing) Summarize(context.Context, []Entry, int) (string, error) {
	return "", f.err
}
