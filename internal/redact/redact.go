// Package redact removes <private>...</private> spans before text reaches
// storage or a remote summarization provider.
//
// Only well-formed spans are matched. An unterminated <private> tag is left
// visible as-is.
package redact

import (
	"regexp"
	"strings"
)

// Placeholder is stored in place of content that was entirely private.
const Placeholder = "[PRIVATE]"

// privateTagRegex matches <private>...</private> tags and their contents,
// case-insensitive on the tag and spanning newlines.
var privateTagRegex = regexp.MustCompile(`(?is)<private>.*?</private>`)

// Contains reports whether text holds at least one well-formed private span.
func Contains(text string) bool {
	return privateTagRegex.MatchString(text)
}

// Strip removes every private span entirely and trims the result.
func Strip(text string) string {
	return strings.TrimSpace(privateTagRegex.ReplaceAllString(text, ""))
}

// Apply returns the content to persist and whether the observation must be
// flagged private. Text without a span is returned untouched.
func Apply(text string) (string, bool) {
	if !Contains(text) {
		return text, false
	}
	cleaned := Strip(text)
	if cleaned == "" {
		return Placeholder, true
	}
	return cleaned, false
}
