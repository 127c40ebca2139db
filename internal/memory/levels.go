// levels.go defines the canonical summary levels and their character
// budgets. The store itself treats a level as an opaque label; only these
// two are ever produced by the end-of-session step.
package memory

import "fmt"

// Summary level constants.
const (
	LevelBrief    = "brief"
	LevelDetailed = "detailed"
)

// Character budgets per canonical level.
const (
	BriefBudget    = 900
	DetailedBudget = 3200
)

// Levels returns the canonical levels in the order they are produced.
func Levels() []string {
	return []string{LevelBrief, LevelDetailed}
}

// BudgetFor returns the character budget for a level. Unrecognized labels
// get the brief budget.
func BudgetFor(level string) int {
	if level == LevelDetailed {
		return DetailedBudget
	}
	return BriefBudget
}

// ─── Token Estimation ───────────────────────────────────────────────────────

// EstimateTokens approximates the token count of text with the chars/4
// heuristic. Returns 0 for empty strings and at least 1 otherwise.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	if n/4 == 0 {
		return 1
	}
	return n / 4
}

// TokenFooter returns a one-line footer with the estimated token count of
// an injected block.
func TokenFooter(estimatedTokens int) string {
	return fmt.Sprintf("\n📏 ~%s tokens", formatNumber(estimatedTokens))
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
