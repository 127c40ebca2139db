// Package memory implements the persistent memory engine for trae-mem.
//
// It stores sessions, observations and summaries in SQLite and mirrors
// non-private observations into an FTS5 index for ranked search. Every
// public operation opens its own statement or transaction and commits
// before returning; there is no background worker.
package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var so tests can pin timestamps.
var timeNow = time.Now

// ErrSessionNotFound is returned when an operation references a session
// that does not exist.
var ErrSessionNotFound = errors.New("memory: session not found")

// Tokenizers tried, in order, when creating the FTS index.
const (
	TokenizerTrigram   = "trigram"
	TokenizerUnicode61 = "unicode61"
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Session is a bounded span of activity grouping observations and summaries.
type Session struct {
	ID          string         `json:"id"`
	StartedAt   int64          `json:"started_at"`
	EndedAt     *int64         `json:"ended_at"`
	ProjectPath *string        `json:"project_path"`
	Meta        map[string]any `json:"meta"`
}

// Observation is one immutable recorded event within a session.
type Observation struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	TS        int64          `json:"ts"`
	Kind      string         `json:"kind"`
	ToolName  *string        `json:"tool_name"`
	Content   string         `json:"content"`
	Private   bool           `json:"private"`
	Tags      map[string]any `json:"tags"`
}

// Summary is a generated digest of a session at a named level.
type Summary struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Content   string `json:"content"`
}

// SearchHit is one search result. Score is the bm25 cost (lower is more
// relevant) on the index path and 0 on the substring fallback.
type SearchHit struct {
	ID        string  `json:"id"`
	TS        int64   `json:"ts"`
	Kind      string  `json:"kind"`
	ToolName  *string `json:"tool_name"`
	SessionID string  `json:"session_id"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
}

// AddObservationParams holds the input for recording an observation.
// Content must already be redacted. TS defaults to now when zero.
type AddObservationParams struct {
	SessionID string         `json:"session_id"`
	Kind      string         `json:"kind"`
	Content   string         `json:"content"`
	ToolName  string         `json:"tool_name,omitempty"`
	Tags      map[string]any `json:"tags,omitempty"`
	Private   bool           `json:"private"`
	TS        int64          `json:"ts,omitempty"`
}

// Stats holds aggregate store statistics.
type Stats struct {
	Sessions            int    `json:"sessions"`
	Observations        int    `json:"observations"`
	PrivateObservations int    `json:"private_observations"`
	Summaries           int    `json:"summaries"`
	Tokenizer           string `json:"tokenizer"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds memory store configuration.
type Config struct {
	// DBPath is the SQLite database file. Parent directories are created.
	DBPath string
}

// DefaultConfig returns a configuration pointing at ~/.trae-mem.
// Callers normally resolve the path through internal/config instead.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DBPath: filepath.Join(home, ".trae-mem", "trae_mem.sqlite3")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent memory engine backed by SQLite + FTS5.
type Store struct {
	db        *sql.DB
	cfg       Config
	hooks     storeHooks
	tokenizer string
	repaired  int
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	queryIt func(db queryer, query string, args ...any) (rowScanner, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) queryItHook(db queryer, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(db, query, args...)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens the database at cfg.DBPath, creating parent directories,
// enabling WAL mode and foreign keys, and running idempotent migrations
// followed by an index repair pass.
func New(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		cfg = DefaultConfig()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("memory: create data dir for %s: %w", cfg.DBPath, err)
	}

	// Connection-scoped pragmas go in the DSN so every pooled connection gets them.
	dsn := cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("memory: open database %s: %w", cfg.DBPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("memory: pragma %q on %s: %w", p, cfg.DBPath, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	n, err := s.repairIndex()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: repair index: %w", err)
	}
	s.repaired = n

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file in use.
func (s *Store) Path() string {
	return s.cfg.DBPath
}

// Tokenizer returns the FTS5 tokenizer the index was created with.
// A value other than "trigram" means the engine lacked trigram support.
func (s *Store) Tokenizer() string {
	return s.tokenizer
}

// Repaired returns how many index rows the startup repair pass fixed.
func (s *Store) Repaired() int {
	return s.repaired
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT    PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			ended_at     INTEGER,
			project_path TEXT,
			meta_json    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path, started_at DESC);

		CREATE TABLE IF NOT EXISTS observations (
			id         TEXT    PRIMARY KEY,
			session_id TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			kind       TEXT    NOT NULL,
			tool_name  TEXT,
			content    TEXT    NOT NULL,
			private    INTEGER NOT NULL DEFAULT 0,
			tags_json  TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_observations_session_ts ON observations(session_id, ts);

		CREATE TABLE IF NOT EXISTS summaries (
			id         TEXT    PRIMARY KEY,
			session_id TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			level      TEXT    NOT NULL,
			content    TEXT    NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_summaries_session_level ON summaries(session_id, level);
	`
	if _, err := s.execHook(s.db, schema); err != nil {
		return err
	}

	var existing string
	err := s.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type='table' AND name='observations_fts'",
	).Scan(&existing)
	switch {
	case err == nil:
		s.tokenizer = TokenizerUnicode61
		if strings.Contains(strings.ToLower(existing), TokenizerTrigram) {
			s.tokenizer = TokenizerTrigram
		}
		return nil
	case err != sql.ErrNoRows:
		return err
	}

	for _, tok := range []string{TokenizerTrigram, TokenizerUnicode61} {
		_, err = s.execHook(s.db, fmt.Sprintf(`
			CREATE VIRTUAL TABLE observations_fts USING fts5(
				id UNINDEXED,
				session_id UNINDEXED,
				kind,
				tool_name,
				content,
				tokenize = '%s'
			)`, tok))
		if err == nil {
			s.tokenizer = tok
			return nil
		}
	}
	return fmt.Errorf("create fts index: %w", err)
}

// repairIndex reconciles the FTS mirror with the primary table: every live
// non-private observation gets an index row, and index rows without one are
// dropped. The common case (mirror in sync) costs one anti-join query.
func (s *Store) repairIndex() (int, error) {
	var drift bool
	if err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM observations o
			LEFT JOIN observations_fts f ON f.id = o.id
			WHERE o.private = 0 AND f.id IS NULL
		) OR EXISTS (
			SELECT 1 FROM observations_fts f
			LEFT JOIN observations o ON o.id = f.id AND o.private = 0
			WHERE o.id IS NULL
		)`).Scan(&drift); err != nil {
		return 0, err
	}
	if !drift {
		return 0, nil
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	inIndex := map[string]bool{}
	rows, err := s.queryItHook(tx, "SELECT id FROM observations_fts")
	if err != nil {
		return 0, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		inIndex[id] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var missing []Observation
	rows, err = s.queryItHook(tx, "SELECT id, session_id, kind, ifnull(tool_name, ''), content FROM observations WHERE private = 0")
	if err != nil {
		return 0, err
	}
	for rows.Next() {
		var o Observation
		var tool string
		if err := rows.Scan(&o.ID, &o.SessionID, &o.Kind, &tool, &o.Content); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if inIndex[o.ID] {
			delete(inIndex, o.ID)
			continue
		}
		o.ToolName = &tool
		missing = append(missing, o)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, o := range missing {
		if _, err := s.execHook(tx,
			`INSERT INTO observations_fts (id, session_id, kind, tool_name, content) VALUES (?, ?, ?, ?, ?)`,
			o.ID, o.SessionID, o.Kind, *o.ToolName, o.Content,
		); err != nil {
			return 0, err
		}
	}
	// Whatever is left in inIndex has no live non-private row.
	for id := range inIndex {
		if _, err := s.execHook(tx, `DELETE FROM observations_fts WHERE id = ?`, id); err != nil {
			return 0, err
		}
	}

	if err := s.commitHook(tx); err != nil {
		return 0, err
	}
	return len(missing) + len(inIndex), nil
}

// ─── Sessions ────────────────────────────────────────────────────────────────

// NewSession creates a session and returns its generated id.
// An empty project leaves the session unscoped.
func (s *Store) NewSession(project string, meta map[string]any) (string, error) {
	id := NewID()
	metaJSON, err := marshalMap(meta)
	if err != nil {
		return "", fmt.Errorf("memory: encode session meta: %w", err)
	}
	if _, err := s.execHook(s.db,
		`INSERT INTO sessions (id, started_at, project_path, meta_json) VALUES (?, ?, ?, ?)`,
		id, timeNow().Unix(), nullableString(project), metaJSON,
	); err != nil {
		return "", fmt.Errorf("memory: create session: %w", err)
	}
	return id, nil
}

// EndSession stamps ended_at. The stamp never precedes started_at.
func (s *Store) EndSession(id string) error {
	res, err := s.execHook(s.db,
		`UPDATE sessions SET ended_at = max(?, started_at) WHERE id = ?`,
		timeNow().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("memory: end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("memory: end session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(id string) (*Session, error) {
	rows, err := s.queryItHook(s.db,
		`SELECT id, started_at, ended_at, project_path, meta_json FROM sessions WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: get session: %w", err)
	}
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, fmt.Errorf("memory: get session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return &sessions[0], nil
}

// SessionExists reports whether a session with id is stored.
func (s *Store) SessionExists(id string) (bool, error) {
	rows, err := s.queryItHook(s.db, `SELECT 1 FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("memory: session exists: %w", err)
	}
	defer func() { _ = rows.Close() }()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("memory: session exists: %w", err)
	}
	return found, nil
}

// RecentSessions returns sessions ordered by start time, newest first,
// optionally filtered to an exact project path.
func (s *Store) RecentSessions(project string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, started_at, ended_at, project_path, meta_json FROM sessions`
	args := []any{}
	if project != "" {
		query += " WHERE project_path = ?"
		args = append(args, project)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.queryItHook(s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: recent sessions: %w", err)
	}
	return scanSessions(rows)
}

// DeleteSession removes a session together with its observations,
// summaries and index rows. This is an administrative operation; the
// normal lifecycle never deletes.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.beginTxHook()
	if err != nil {
		return fmt.Errorf("memory: delete session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := s.execHook(tx, `DELETE FROM observations_fts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("memory: delete session index rows: %w", err)
	}
	res, err := s.execHook(tx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("memory: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("memory: delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s.commitHook(tx)
}

// ─── Observations ────────────────────────────────────────────────────────────

// AddObservation inserts an observation and, unless it is private, its
// search-index mirror in the same transaction.
func (s *Store) AddObservation(p AddObservationParams) (string, error) {
	if p.SessionID == "" {
		return "", errors.New("memory: add observation: session id is required")
	}
	if p.Kind == "" {
		return "", errors.New("memory: add observation: kind is required")
	}
	ts := p.TS
	if ts == 0 {
		ts = timeNow().Unix()
	}
	tagsJSON, err := marshalMap(p.Tags)
	if err != nil {
		return "", fmt.Errorf("memory: encode tags: %w", err)
	}

	id := NewID()

	tx, err := s.beginTxHook()
	if err != nil {
		return "", fmt.Errorf("memory: add observation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := s.execHook(tx,
		`INSERT INTO observations (id, session_id, ts, kind, tool_name, content, private, tags_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.SessionID, ts, p.Kind, nullableString(p.ToolName), p.Content, boolToInt(p.Private), tagsJSON,
	); err != nil {
		if isForeignKeyViolation(err) {
			return "", fmt.Errorf("%w: %q", ErrSessionNotFound, p.SessionID)
		}
		return "", fmt.Errorf("memory: add observation: %w", err)
	}

	if !p.Private {
		if _, err := s.execHook(tx,
			`INSERT INTO observations_fts (id, session_id, kind, tool_name, content) VALUES (?, ?, ?, ?, ?)`,
			id, p.SessionID, p.Kind, p.ToolName, p.Content,
		); err != nil {
			return "", fmt.Errorf("memory: index observation: %w", err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return "", fmt.Errorf("memory: add observation: commit: %w", err)
	}
	return id, nil
}

// GetObservations fetches observations by id, ordered by ts ascending.
// Unknown ids are omitted.
func (s *Store) GetObservations(ids []string) ([]Observation, error) {
	if len(ids) == 0 {
		return []Observation{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	obs, err := s.queryObservations(
		`SELECT id, session_id, ts, kind, tool_name, content, private, tags_json
		 FROM observations WHERE id IN (`+placeholders+`)
		 ORDER BY ts ASC, rowid ASC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: get observations: %w", err)
	}
	return obs, nil
}

// ObservationsBySession returns a session's observations in ts order,
// private ones included.
func (s *Store) ObservationsBySession(sessionID string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 5000
	}
	obs, err := s.queryObservations(
		`SELECT id, session_id, ts, kind, tool_name, content, private, tags_json
		 FROM observations WHERE session_id = ?
		 ORDER BY ts ASC, rowid ASC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: observations by session: %w", err)
	}
	return obs, nil
}

// ─── Summaries ───────────────────────────────────────────────────────────────

// AddSummary stores a summary for a session at the given level.
func (s *Store) AddSummary(sessionID, level, content string) (string, error) {
	id := NewID()
	if _, err := s.execHook(s.db,
		`INSERT INTO summaries (id, session_id, created_at, level, content) VALUES (?, ?, ?, ?, ?)`,
		id, sessionID, timeNow().Unix(), level, content,
	); err != nil {
		if isForeignKeyViolation(err) {
			return "", fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
		}
		return "", fmt.Errorf("memory: add summary: %w", err)
	}
	return id, nil
}

// LatestSummary returns the newest summary for (session, level), or nil.
func (s *Store) LatestSummary(sessionID, level string) (*Summary, error) {
	var sum Summary
	err := s.db.QueryRow(
		`SELECT id, session_id, created_at, level, content FROM summaries
		 WHERE session_id = ? AND level = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		sessionID, level,
	).Scan(&sum.ID, &sum.SessionID, &sum.CreatedAt, &sum.Level, &sum.Content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: latest summary: %w", err)
	}
	return &sum, nil
}

// ─── Timeline ────────────────────────────────────────────────────────────────

// Timeline returns every observation in the anchor's session whose ts lies
// within windowMinutes of the anchor (inclusive), in ts order. An unknown
// anchor yields an empty result.
func (s *Store) Timeline(observationID string, windowMinutes int) ([]Observation, error) {
	if windowMinutes < 0 {
		windowMinutes = 10
	}

	var sessionID string
	var ts int64
	err := s.db.QueryRow(
		`SELECT session_id, ts FROM observations WHERE id = ?`, observationID,
	).Scan(&sessionID, &ts)
	if err == sql.ErrNoRows {
		return []Observation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: timeline anchor: %w", err)
	}

	span := int64(windowMinutes) * 60
	obs, err := s.queryObservations(
		`SELECT id, session_id, ts, kind, tool_name, content, private, tags_json
		 FROM observations
		 WHERE session_id = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts ASC, rowid ASC`,
		sessionID, ts-span, ts+span,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: timeline: %w", err)
	}
	return obs, nil
}

// ─── Search (FTS5) ───────────────────────────────────────────────────────────

// Search runs the query as an FTS5 expression ranked by bm25. When the
// expression is rejected by the engine or matches nothing, it falls back to
// a substring scan over non-private content, newest first. Index errors are
// never returned. A blank query returns no hits without touching the store.
func (s *Store) Search(query string, limit int) ([]SearchHit, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	if hits, err := s.searchIndex(q, limit); err == nil && len(hits) > 0 {
		return hits, nil
	}

	hits, err := s.searchSubstring(q, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}
	return hits, nil
}

func (s *Store) searchIndex(q string, limit int) ([]SearchHit, error) {
	rows, err := s.queryItHook(s.db, `
		SELECT o.id, o.ts, o.kind, o.tool_name, o.session_id,
		       snippet(observations_fts, 4, '[', ']', '…', 12) AS snip,
		       bm25(observations_fts) AS score
		FROM observations_fts
		JOIN observations o ON o.id = observations_fts.id
		WHERE observations_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, q, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var tool sql.NullString
		if err := rows.Scan(&h.ID, &h.TS, &h.Kind, &tool, &h.SessionID, &h.Snippet, &h.Score); err != nil {
			return nil, err
		}
		h.ToolName = nonEmpty(tool)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *Store) searchSubstring(q string, limit int) ([]SearchHit, error) {
	rows, err := s.queryItHook(s.db, `
		SELECT id, ts, kind, tool_name, session_id, content
		FROM observations
		WHERE private = 0 AND content LIKE ? ESCAPE '\'
		ORDER BY ts DESC, rowid DESC
		LIMIT ?
	`, "%"+escapeLike(q)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hits := []SearchHit{}
	for rows.Next() {
		var h SearchHit
		var tool sql.NullString
		var content string
		if err := rows.Scan(&h.ID, &h.TS, &h.Kind, &tool, &h.SessionID, &content); err != nil {
			return nil, err
		}
		h.ToolName = nonEmpty(tool)
		h.Snippet = Clip(content, 120)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate counts.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{Tokenizer: s.tokenizer}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM sessions", &st.Sessions},
		{"SELECT COUNT(*) FROM observations", &st.Observations},
		{"SELECT COUNT(*) FROM observations WHERE private = 1", &st.PrivateObservations},
		{"SELECT COUNT(*) FROM summaries", &st.Summaries},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("memory: stats: %w", err)
		}
	}
	return st, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) queryObservations(query string, args ...any) ([]Observation, error) {
	rows, err := s.queryItHook(s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []Observation{}
	for rows.Next() {
		var o Observation
		var tool, tags sql.NullString
		var private int
		if err := rows.Scan(&o.ID, &o.SessionID, &o.TS, &o.Kind, &tool, &o.Content, &private, &tags); err != nil {
			return nil, err
		}
		o.ToolName = nonEmpty(tool)
		o.Private = private != 0
		o.Tags = unmarshalMap(tags)
		results = append(results, o)
	}
	return results, rows.Err()
}

func scanSessions(rows rowScanner) ([]Session, error) {
	defer func() { _ = rows.Close() }()

	results := []Session{}
	for rows.Next() {
		var sess Session
		var ended sql.NullInt64
		var project, meta sql.NullString
		if err := rows.Scan(&sess.ID, &sess.StartedAt, &ended, &project, &meta); err != nil {
			return nil, err
		}
		if ended.Valid {
			v := ended.Int64
			sess.EndedAt = &v
		}
		sess.ProjectPath = nonEmpty(project)
		sess.Meta = unmarshalMap(meta)
		results = append(results, sess)
	}
	return results, rows.Err()
}

// NewID returns a random 32-character hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Clip shortens s to at most max runes, ending in "…" when cut.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	v := ns.String
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMap(ns sql.NullString) map[string]any {
	out := map[string]any{}
	if ns.Valid && ns.String != "" {
		_ = json.Unmarshal([]byte(ns.String), &out) // legacy rows may hold junk
	}
	return out
}

// escapeLike escapes LIKE wildcards so the query is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// isForeignKeyViolation checks if an error is a SQLite FOREIGN KEY failure.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
