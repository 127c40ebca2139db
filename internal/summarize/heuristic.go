package summarize

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/HendryAvila/trae-mem/internal/memory"
	"github.com/HendryAvila/trae-mem/internal/redact"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

type bucket struct {
	header string
	clip   int
	max    int
	// more appends a "…" item when the bucket was capped.
	more  bool
	items []string
}

// Heuristic is the deterministic, dependency-free strategy.
type Heuristic struct{}

// Name implements Strategy.
func (Heuristic) Name() string { return "heuristic" }

// Summarize implements Strategy. It never returns an error.
func (Heuristic) Summarize(_ context.Context, entries []Entry, budget int) (string, error) {
	intents := &bucket{header: "用户意图/输入", clip: 180, max: 3, more: true}
	decisions := &bucket{header: "关键结论/决策", clip: 220, max: 6}
	actions := &bucket{header: "工具动作/线索", clip: 220, max: 8}
	errs := &bucket{header: "错误/风险", clip: 220, max: 6}
	other := &bucket{header: "其他", clip: 220, max: 4}

	for _, e := range entries {
		c := redact.Strip(e.Content)
		if c == "" {
			continue
		}
		line := memory.Clip(whitespaceRun.ReplaceAllString(c, " "), 220)

		switch e.Kind {
		case "user":
			intents.items = append(intents.items, memory.Clip(whitespaceRun.ReplaceAllString(c, " "), intents.clip))
		case "tool":
			name := e.ToolName
			if name == "" {
				name = "tool"
			}
			actions.items = append(actions.items, name+": "+line)
		case "decision", "note":
			decisions.items = append(decisions.items, line)
		case "error", "exception":
			errs.items = append(errs.items, line)
		default:
			other.items = append(other.items, line)
		}
	}

	var lines []string
	for _, b := range []*bucket{intents, decisions, actions, errs, other} {
		items := dedupe(b.items)
		if len(items) == 0 {
			continue
		}
		lines = append(lines, b.header)
		capped := items
		if len(capped) > b.max {
			capped = capped[:b.max]
		}
		for _, it := range capped {
			lines = append(lines, "- "+it)
		}
		if b.more && len(items) > b.max {
			lines = append(lines, "- …")
		}
	}
	return fitLines(lines, budget), nil
}

// dedupe drops blank and repeated items, keeping first occurrences.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		k := strings.TrimSpace(it)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// fitLines keeps leading lines while each costs its rune count plus a
// newline, stopping at the first one that would overflow budget.
func fitLines(lines []string, budget int) string {
	remaining := budget
	var kept []string
	for _, ln := range lines {
		cost := utf8.RuneCountInString(ln) + 1
		if cost > remaining {
			break
		}
		kept = append(kept, ln)
		remaining -= cost
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
