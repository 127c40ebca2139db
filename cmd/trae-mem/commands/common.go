package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/HendryAvila/trae-mem/internal/app"
	"github.com/HendryAvila/trae-mem/internal/config"
)

// newLogger returns the stderr logger honoring --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	return app.NewLogger(cmd.ErrOrStderr(), verbose)
}

// loadConfig resolves configuration from the global flags.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	db, _ := flags.GetString("db")
	cfgPath, _ := flags.GetString("config")
	return config.Load(config.Options{DBPath: db, ConfigPath: cfgPath}, logger)
}

// openApp loads configuration and opens the store. The caller must Close
// the result.
func openApp(cmd *cobra.Command) (*app.App, error) {
	logger := newLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, logger)
}

// withApp runs fn against an opened App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

// printJSON writes v as indented JSON without HTML escaping, so CJK text
// and markup stay readable.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseObject decodes a JSON object flag. Empty input yields nil.
func parseObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", flag, err)
	}
	return m, nil
}

// readPiped returns stdin's content when it is not an interactive
// terminal, and "" otherwise.
func readPiped(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
