// Package bridge maps an external session identifier (issued by the host
// IDE) plus a project scope to an internal session id, so repeated
// lifecycle events for the same external session land in one session.
//
// The map is a pretty-printed JSON object on disk, re-read on every call.
// Two processes resolving the same unseen key at once may both create a
// session; the last write wins and the other session is orphaned.
package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorruptMap is returned when the map file exists but is not a JSON
// object. The file is left untouched so it can be inspected or restored.
var ErrCorruptMap = errors.New("bridge: session map is not a JSON object")

// SessionStore creates internal sessions and reports whether one still
// exists. *memory.Store satisfies it.
type SessionStore interface {
	NewSession(project string, meta map[string]any) (string, error)
	SessionExists(id string) (bool, error)
}

// Map is a file-backed session map.
type Map struct {
	path string
}

// New returns a Map stored at path. The file is created on first write.
func New(path string) *Map {
	return &Map{path: path}
}

// Path returns the backing file.
func (m *Map) Path() string {
	return m.path
}

// Key builds the map key for an external id within a project scope.
func Key(externalID, project string) string {
	return project + ":" + externalID
}

// Lookup returns the mapped session id without creating anything.
func (m *Map) Lookup(externalID, project string) (string, bool, error) {
	entries, err := m.load()
	if err != nil {
		return "", false, err
	}
	id, ok := entries[Key(externalID, project)]
	if !ok || id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// ResolveOrCreate returns the mapped session id, creating a session through
// store and persisting the mapping when none exists. A mapping to a session
// that was deleted since is replaced.
func (m *Map) ResolveOrCreate(externalID, project string, meta map[string]any, store SessionStore) (string, error) {
	entries, err := m.load()
	if err != nil {
		return "", err
	}
	key := Key(externalID, project)
	if id := entries[key]; id != "" {
		ok, err := store.SessionExists(id)
		if err != nil {
			return "", fmt.Errorf("bridge: check session %q: %w", id, err)
		}
		if ok {
			return id, nil
		}
	}

	id, err := store.NewSession(project, meta)
	if err != nil {
		return "", fmt.Errorf("bridge: create session for %q: %w", key, err)
	}
	entries[key] = id
	if err := m.save(entries); err != nil {
		return "", err
	}
	return id, nil
}

// Forget drops every mapping that points at sessionID and returns how many
// were removed.
func (m *Map) Forget(sessionID string) (int, error) {
	entries, err := m.load()
	if err != nil {
		return 0, err
	}
	n := 0
	for k, v := range entries {
		if v == sessionID {
			delete(entries, k)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, m.save(entries)
}

// Entries returns a copy of the whole map.
func (m *Map) Entries() (map[string]string, error) {
	return m.load()
}

// load reads the map. A missing or blank file reads as empty; a file that
// is not a JSON object is ErrCorruptMap. Non-string values are ignored.
func (m *Map) load() (map[string]string, error) {
	out := map[string]string{}
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bridge: read session map %s: %w", m.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptMap, m.path)
	}
	for k, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	return out, nil
}

// save writes the map to a temp file in the same directory and renames it
// over the target, so readers never observe a partial file.
func (m *Map) save(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("bridge: marshal session map: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bridge: create session map dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("bridge: write session map %s: %w", m.path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("bridge: write session map %s: %w", m.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("bridge: write session map %s: %w", m.path, err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("bridge: replace session map %s: %w", m.path, err)
	}
	return nil
}
