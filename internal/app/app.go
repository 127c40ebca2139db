// Package app opens every runtime component from a resolved configuration.
//
// It is the single place where concrete implementations are created; the
// CLI, the MCP server and the HTTP mirror all receive an *App and never
// construct stores or summarizers themselves.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/HendryAvila/trae-mem/internal/bridge"
	"github.com/HendryAvila/trae-mem/internal/config"
	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/lifecycle"
	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/HendryAvila/trae-mem/internal/summarize"
)

// App bundles the opened components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *memory.Store
	Sessions   *bridge.Map
	Summarizer *summarize.Summarizer
	Service    *lifecycle.Service
	Injector   *inject.Builder
}

// NewLogger returns a text logger writing to w. stdout must never be used:
// it carries MCP stdio traffic and command output.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Open opens the store and wires the remaining components around it.
// The caller must Close the returned App.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := memory.New(memory.Config{DBPath: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	log := logger.With("component", "app")
	if tok := store.Tokenizer(); tok != memory.TokenizerTrigram {
		log.Warn("FTS5 trigram tokenizer unavailable, CJK search degraded", "tokenizer", tok)
	}
	if n := store.Repaired(); n > 0 {
		log.Warn("search index repaired", "rows", n)
	}

	sessions := bridge.New(cfg.SessionMapPath)
	summarizer := summarize.New(cfg.Summarizer, logger)

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Sessions:   sessions,
		Summarizer: summarizer,
		Service:    lifecycle.New(store, sessions, summarizer, logger),
		Injector:   inject.New(store),
	}
	log.Debug("opened",
		"db", store.Path(), "session_map", sessions.Path(),
		"tokenizer", store.Tokenizer(), "summarizer", summarizer.Strategy())
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
