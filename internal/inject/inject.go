// Package inject composes the context block handed to a new assistant
// session: recent sessions with their brief summaries, plus index-level and
// detail-level hits for a query.
package inject

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/trae-mem/internal/memory"
)

// Limits applied while rendering.
const (
	DefaultLimit   = 12
	RecentSessions = 5
	SummaryClip    = 800
	DetailRows     = 20
	DetailClip     = 500

	headerLine = "【trae-mem 注入上下文】"
	openEnded  = "None"
)

// Reader is the read-only slice of the store the builder needs.
type Reader interface {
	Search(query string, limit int) ([]memory.SearchHit, error)
	GetObservations(ids []string) ([]memory.Observation, error)
	RecentSessions(project string, limit int) ([]memory.Session, error)
	LatestSummary(sessionID, level string) (*memory.Summary, error)
}

// Builder renders injection blocks from a Reader.
type Builder struct {
	reader Reader
}

// New creates a Builder.
func New(r Reader) *Builder {
	return &Builder{reader: r}
}

// Build renders the block for query. A blank query skips search entirely;
// project, when non-empty, scopes the recent sessions.
func (b *Builder) Build(query string, limit int, project string) (string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.TrimSpace(query)

	hits := []memory.SearchHit{}
	if q != "" {
		var err error
		if hits, err = b.reader.Search(q, limit); err != nil {
			return "", fmt.Errorf("inject: search: %w", err)
		}
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	rows, err := b.reader.GetObservations(ids)
	if err != nil {
		return "", fmt.Errorf("inject: load observations: %w", err)
	}

	sessions, err := b.reader.RecentSessions(project, RecentSessions)
	if err != nil {
		return "", fmt.Errorf("inject: recent sessions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(headerLine + "\n")
	if q != "" {
		fmt.Fprintf(&sb, "查询：%s\n", q)
	}

	if len(sessions) > 0 {
		sb.WriteString("\n最近会话：\n")
		for _, s := range sessions {
			ended := openEnded
			if s.EndedAt != nil {
				ended = fmt.Sprintf("%d", *s.EndedAt)
			}
			fmt.Fprintf(&sb, "- session=%s started_at=%d ended_at=%s\n", s.ID, s.StartedAt, ended)

			sum, err := b.reader.LatestSummary(s.ID, memory.LevelBrief)
			if err != nil {
				return "", fmt.Errorf("inject: summary for %s: %w", s.ID, err)
			}
			if sum != nil {
				if c := strings.TrimSpace(sum.Content); c != "" {
					fmt.Fprintf(&sb, "  摘要：%s\n", memory.Clip(c, SummaryClip))
				}
			}
		}
	}

	if len(hits) > 0 {
		sb.WriteString("\n相关观测（索引级）：\n")
		for _, h := range hits {
			fmt.Fprintf(&sb, "- %s [%s] %s\n", h.ID, label(h.Kind, h.ToolName), h.Snippet)
		}
	}

	if len(rows) > 0 {
		sb.WriteString("\n相关观测（细节级，截断）：\n")
		if len(rows) > DetailRows {
			rows = rows[:DetailRows]
		}
		for _, o := range rows {
			content := memory.Clip(strings.TrimSpace(o.Content), DetailClip)
			fmt.Fprintf(&sb, "- %s [%s] %s\n", o.ID, label(o.Kind, o.ToolName), content)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

func label(kind string, tool *string) string {
	if tool == nil || *tool == "" {
		return kind
	}
	return kind + "/" + *tool
}
