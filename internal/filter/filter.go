// Package filter provides the moderation hook applied to outbound message
// text. The coordinator treats it as a pure text -> text function.
package filter

import (
	"regexp"
	"strings"
)

// New builds a masking filter from a wordlist. Each banned word is replaced
// by asterisks of equal length, matched case-insensitively on word
// boundaries. An empty wordlist yields nil, which the hub treats as
// pass-through.
func New(words []string) func(string) string {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	if len(patterns) == 0 {
		return nil
	}

	return func(text string) string {
		for _, p := range patterns {
			text = p.ReplaceAllStringFunc(text, func(match string) string {
				return strings.Repeat("*", len(match))
			})
		}
		return text
	}
}
