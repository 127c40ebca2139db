// Package installer registers trae-mem as an MCP server in the Trae IDE's
// user-level mcp.json. Unrelated keys and other servers are preserved.
package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// ServerKey is the entry name under mcpServers.
const ServerKey = "trae-mem"

// ErrNoConfigDir means the Trae user directory does not exist, usually
// because the IDE has never been run.
var ErrNoConfigDir = errors.New("installer: Trae config directory not found")

// Entry is the mcpServers value written for trae-mem.
type Entry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls an install.
type Options struct {
	// ConfigPath overrides the mcp.json location.
	ConfigPath string
	// Command is the trae-mem executable; defaults to os.Executable.
	Command string
	// DataDir is exported to the server as TRAE_MEM_HOME; empty omits it.
	DataDir string
	// DryRun computes the new content without touching the filesystem.
	DryRun bool
}

// Result describes what Install did (or would do).
type Result struct {
	ConfigPath string
	BackupPath string
	// Replaced is true when the previous file was not valid JSON and was
	// started over.
	Replaced bool
	Content  []byte
}

// ConfigDir returns the Trae user directory for goos.
func ConfigDir(goos, home, appData string) (string, error) {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Trae", "User"), nil
	case "windows":
		if appData == "" {
			return "", errors.New("installer: APPDATA is not set")
		}
		return filepath.Join(appData, "Trae", "User"), nil
	case "linux":
		return filepath.Join(home, ".config", "Trae", "User"), nil
	default:
		return "", fmt.Errorf("installer: unsupported OS %q", goos)
	}
}

// DefaultConfigPath returns mcp.json for the running OS and user.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("installer: home directory: %w", err)
	}
	dir, err := ConfigDir(runtime.GOOS, home, os.Getenv("APPDATA"))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcp.json"), nil
}

// Install writes the trae-mem entry into mcp.json, backing up an existing
// file to mcp.json.bak first.
func Install(opts Options) (*Result, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoConfigDir, filepath.Dir(path))
	}

	command := opts.Command
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("installer: locate executable: %w", err)
		}
		command = exe
	}
	entry := Entry{Command: command, Args: []string{"mcp"}}
	if opts.DataDir != "" {
		entry.Env = map[string]string{"TRAE_MEM_HOME": opts.DataDir}
	}

	res := &Result{ConfigPath: path}
	existing, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("installer: read %s: %w", path, err)
	}

	content, replaced, err := Merge(existing, entry)
	if err != nil {
		return nil, err
	}
	res.Content = content
	res.Replaced = replaced

	if opts.DryRun {
		return res, nil
	}

	if exists {
		res.BackupPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".json.bak"
		if err := os.WriteFile(res.BackupPath, existing, 0o600); err != nil {
			return nil, fmt.Errorf("installer: backup %s: %w", path, err)
		}
	}
	if err := writeAtomic(path, content); err != nil {
		return nil, err
	}
	return res, nil
}

// Merge sets mcpServers["trae-mem"] in an mcp.json document. Blank input
// starts from {}; input that is not a JSON object starts over and reports
// replaced=true.
func Merge(existing []byte, entry Entry) ([]byte, bool, error) {
	doc := existing
	replaced := false
	if len(strings.TrimSpace(string(doc))) == 0 {
		doc = []byte("{}")
	} else if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		doc = []byte("{}")
		replaced = true
	}

	if servers := gjson.GetBytes(doc, "mcpServers"); servers.Exists() && !servers.IsObject() {
		var err error
		if doc, err = sjson.DeleteBytes(doc, "mcpServers"); err != nil {
			return nil, false, fmt.Errorf("installer: reset mcpServers: %w", err)
		}
	}

	out, err := sjson.SetBytes(doc, "mcpServers."+escapeKey(ServerKey), entry)
	if err != nil {
		return nil, false, fmt.Errorf("installer: set entry: %w", err)
	}
	return pretty.PrettyOptions(out, &pretty.Options{Width: 80, Indent: "    "}), replaced, nil
}

// escapeKey escapes sjson path metacharacters in a literal key.
func escapeKey(k string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(k)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mcp-*.json")
	if err != nil {
		return fmt.Errorf("installer: write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("installer: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("installer: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installer: replace %s: %w", path, err)
	}
	return nil
}
